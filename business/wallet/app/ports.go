// Package app contains the connection manager, the state store and the
// ports to the wallet agent and the ledger.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventHandlers receive gateway lifecycle events.
type EventHandlers struct {
	AccountsChanged func(accounts []common.Address)
	ChainChanged    func(chainID *big.Int)
	Connect         func()
	Disconnect      func(err error)
}

// TxRequest is an unsigned transaction handed to the wallet agent.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Gas   uint64 // 0 lets the agent estimate
	Value *big.Int
}

// Gateway is the wallet agent holding the user's keys.
type Gateway interface {
	// Available reports whether the agent can be reached.
	Available(ctx context.Context) bool

	// RequestAccounts asks the agent for account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// SwitchChain asks the agent to change its active chain.
	SwitchChain(ctx context.Context, chainID uint64) error

	// PersonalSign signs msg with EIP-191 for account.
	PersonalSign(ctx context.Context, account common.Address, msg []byte) ([]byte, error)

	// SendTransaction has the agent sign and broadcast tx.
	SendTransaction(ctx context.Context, from common.Address, tx TxRequest) (common.Hash, error)

	// Endpoint is the JSON-RPC url a ledger client can dial through the agent.
	Endpoint() string

	// Listen binds the event handlers.
	Listen(h EventHandlers)
}

// Ledger is a read-only chain client.
type Ledger interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	Close()
}

// LedgerDialer creates session-scoped ledger clients.
type LedgerDialer interface {
	Dial(ctx context.Context, endpoint string) (Ledger, error)
}

// Signer signs and submits on behalf of one account.
type Signer interface {
	Address() common.Address
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
}

// Confidentiality seals call data for chains that require encrypted calls.
type Confidentiality interface {
	Seal(ctx context.Context, data []byte) ([]byte, error)
}
