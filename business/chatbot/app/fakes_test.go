package app

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/promptchain/business/chatbot/domain"
	networkDomain "github.com/fd1az/promptchain/business/network/domain"
	walletApp "github.com/fd1az/promptchain/business/wallet/app"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

// fakeWallet runs the real store so reducers behave as in production.
type fakeWallet struct {
	*walletApp.Store

	mu      sync.Mutex
	signed  []string
	waited  []common.Hash
	waitErr error
}

func newFakeWallet(t *testing.T, account common.Address) *fakeWallet {
	t.Helper()
	var sapphire *networkDomain.Network
	for _, n := range networkDomain.Builtin() {
		if n.ChainID == 0x5afe {
			sapphire = n
		}
	}
	st := walletDomain.Connected(account, big.NewInt(0x5afe), sapphire)(walletDomain.Initial())
	w := &fakeWallet{Store: walletApp.NewStore(st)}
	t.Cleanup(func() { _ = w.Store.Close() })
	return w
}

func (w *fakeWallet) UnwrappedSigner(context.Context) (walletApp.Signer, error) {
	st := w.State()
	if st.Account == nil {
		return nil, apperror.New(apperror.CodeNoAccount)
	}
	return &fakeSigner{wallet: w, account: *st.Account}, nil
}

func (w *fakeWallet) WaitForTransaction(_ context.Context, hash common.Hash) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waited = append(w.waited, hash)
	if w.waitErr != nil {
		return nil, w.waitErr
	}
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(w.waited))}), nil
}

func (w *fakeWallet) signedMessages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.signed...)
}

type fakeSigner struct {
	wallet  *fakeWallet
	account common.Address
}

func (s *fakeSigner) Address() common.Address { return s.account }

func (s *fakeSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	s.wallet.mu.Lock()
	defer s.wallet.mu.Unlock()
	s.wallet.signed = append(s.wallet.signed, string(msg))
	sig := make([]byte, 65)
	sig[64] = 1
	return sig, nil
}

func (s *fakeSigner) SendTransaction(context.Context, walletApp.TxRequest) (common.Hash, error) {
	return common.Hash{}, nil
}

type fakeChatBot struct {
	mu       sync.Mutex
	domain   string
	logins   []string
	loginErr error
	prompts  []string
	answers  []domain.AnswerRecord
	gasLimit uint64

	appendErr error
	watchErr  error
	watches   []chan common.Address
}

func (b *fakeChatBot) Domain(context.Context) (string, error) { return b.domain, nil }

func (b *fakeChatBot) Login(_ context.Context, message string, sig domain.SignatureRSV) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	if sig.V.Int64() != 28 {
		return nil, apperror.New(apperror.CodeAuthFailed)
	}
	b.logins = append(b.logins, message)
	return []byte{byte(len(b.logins))}, nil
}

func (b *fakeChatBot) GetPrompts(_ context.Context, token []byte, _ common.Address) ([]string, error) {
	if len(token) == 0 {
		return nil, apperror.New(apperror.CodeAuthFailed)
	}
	return b.prompts, nil
}

func (b *fakeChatBot) GetAnswers(_ context.Context, token []byte, _ common.Address) ([]domain.AnswerRecord, error) {
	if len(token) == 0 {
		return nil, apperror.New(apperror.CodeAuthFailed)
	}
	return b.answers, nil
}

func (b *fakeChatBot) AppendPrompt(_ context.Context, prompt string) (common.Hash, error) {
	if b.appendErr != nil {
		return common.Hash{}, b.appendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	return common.BytesToHash([]byte(prompt)), nil
}

func (b *fakeChatBot) ClearPrompt(_ context.Context, gasLimit uint64) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gasLimit = gasLimit
	b.prompts = nil
	return common.HexToHash("0xc1ea"), nil
}

// WatchAnswerSubmitted returns a channel the test fires through answer.
func (b *fakeChatBot) WatchAnswerSubmitted(ctx context.Context, _ common.Address) (<-chan common.Address, error) {
	if b.watchErr != nil {
		return nil, b.watchErr
	}
	trigger := make(chan common.Address, 1)
	out := make(chan common.Address, 1)
	go func() {
		defer close(out)
		select {
		case sender, ok := <-trigger:
			if ok {
				out <- sender
			}
		case <-ctx.Done():
		}
	}()

	b.mu.Lock()
	b.watches = append(b.watches, trigger)
	b.mu.Unlock()
	return out, nil
}

func (b *fakeChatBot) answer(sender common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.watches {
		w <- sender
	}
	b.watches = nil
}

// dropWatches ends every watch without an answer.
func (b *fakeChatBot) dropWatches() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.watches {
		close(w)
	}
	b.watches = nil
}

func (b *fakeChatBot) loginCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logins)
}

type fakeFactory struct{ bot *fakeChatBot }

func (f fakeFactory) ChatBot(context.Context) (ChatBot, error) { return f.bot, nil }
