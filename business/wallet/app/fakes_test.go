package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	networkDomain "github.com/fd1az/promptchain/business/network/domain"
	"github.com/fd1az/promptchain/internal/apperror"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

type fakeRPCError struct {
	code int
	msg  string
}

func (e *fakeRPCError) Error() string  { return e.msg }
func (e *fakeRPCError) ErrorCode() int { return e.code }

type fakeGateway struct {
	mu          sync.Mutex
	accounts    []common.Address
	accountsErr error
	listens     int
	handlers    EventHandlers
	switched    []uint64
	signed      [][]byte
	sent        []TxRequest
}

func (g *fakeGateway) Available(context.Context) bool { return true }

func (g *fakeGateway) RequestAccounts(context.Context) ([]common.Address, error) {
	return g.accounts, g.accountsErr
}

func (g *fakeGateway) SwitchChain(_ context.Context, chainID uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.switched = append(g.switched, chainID)
	return nil
}

func (g *fakeGateway) PersonalSign(_ context.Context, _ common.Address, msg []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signed = append(g.signed, msg)
	return make([]byte, 65), nil
}

func (g *fakeGateway) SendTransaction(_ context.Context, _ common.Address, tx TxRequest) (common.Hash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, tx)
	return common.HexToHash("0x01"), nil
}

func (g *fakeGateway) Endpoint() string { return "ws://agent/rpc" }

func (g *fakeGateway) Listen(h EventHandlers) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listens++
	g.handlers = h
}

func (g *fakeGateway) listenCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listens
}

type fakeLedger struct {
	mu       sync.Mutex
	chainID  *big.Int
	chainErr error
	gasPrice *big.Int
	receipts map[common.Hash]*types.Receipt
	misses   int // receipt lookups that return NotFound first
	closed   bool
}

func (l *fakeLedger) ChainID(context.Context) (*big.Int, error) { return l.chainID, l.chainErr }

func (l *fakeLedger) BlockNumber(context.Context) (uint64, error) { return 1, nil }

func (l *fakeLedger) SuggestGasPrice(context.Context) (*big.Int, error) { return l.gasPrice, nil }

func (l *fakeLedger) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (l *fakeLedger) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.misses > 0 {
		l.misses--
		return nil, ethereum.NotFound
	}
	r, ok := l.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (l *fakeLedger) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return types.NewTx(&types.LegacyTx{Nonce: 1}), false, nil
}

func (l *fakeLedger) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (l *fakeLedger) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (l *fakeLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

type fakeDialer struct {
	ledger *fakeLedger
	err    error
	dials  int
}

func (d *fakeDialer) Dial(context.Context, string) (Ledger, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.ledger, nil
}

type fakeDirectory struct{}

func (fakeDirectory) Lookup(_ context.Context, chainID uint64) (*networkDomain.Network, error) {
	for _, n := range networkDomain.Builtin() {
		if n.ChainID == chainID {
			return n.Clone(), nil
		}
	}
	return nil, apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(fmt.Sprint(chainID)))
}

type fakeSealer struct{}

func (fakeSealer) Seal(_ context.Context, data []byte) ([]byte, error) {
	return append([]byte("sealed:"), data...), nil
}
