// Package eip1193 implements the wallet gateway as EIP-1193 JSON-RPC over a
// WebSocket connection to the wallet agent.
package eip1193

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Methods sent to the agent.
const (
	MethodRequestAccounts   = "eth_requestAccounts"
	MethodAccounts          = "eth_accounts"
	MethodSwitchChain       = "wallet_switchEthereumChain"
	MethodPersonalSign      = "personal_sign"
	MethodSendTransaction   = "eth_sendTransaction"
	MethodCallDataPublicKey = "oasis_callDataPublicKey"
)

// Events pushed by the agent. Params carry the event arguments.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Message is any frame received from the agent: a response when ID is set,
// a notification when Method is set.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ProviderError  `json:"error,omitempty"`
}

// ProviderError is an EIP-1193 provider error.
type ProviderError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the EIP-1193 code.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

// ErrorData returns the raw error data.
func (e *ProviderError) ErrorData() any {
	return e.Data
}

type switchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

type sendTxParams struct {
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

type connectInfo struct {
	ChainID string `json:"chainId"`
}

type callDataPublicKey struct {
	Key       hexutil.Bytes `json:"key"`
	Checksum  hexutil.Bytes `json:"checksum"`
	Signature hexutil.Bytes `json:"signature"`
	Epoch     uint64        `json:"epoch"`
}
