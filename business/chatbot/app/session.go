package app

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/promptchain/business/chatbot/domain"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
)

const tracerName = "github.com/fd1az/promptchain/business/chatbot/app"

// SessionManager obtains and caches one chatbot token per account.
type SessionManager struct {
	wallet Wallet
	logger logger.LoggerInterface
	tracer trace.Tracer
	group  singleflight.Group

	now   func() time.Time
	nonce func() string
}

// NewSessionManager creates a SessionManager. Tokens live in the wallet
// state so an account change drops them.
func NewSessionManager(wallet Wallet, log logger.LoggerInterface) *SessionManager {
	return &SessionManager{
		wallet: wallet,
		logger: log,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		nonce:  newNonce,
	}
}

// newNonce returns an alphanumeric EIP-4361 nonce.
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AuthInfo returns the token for the active account, signing in first when
// none is cached. Concurrent callers for one account share a single login.
func (s *SessionManager) AuthInfo(ctx context.Context, svc ChatBot) ([]byte, error) {
	st := s.wallet.State()
	if st.Account == nil {
		return nil, apperror.New(apperror.CodeNoAccount)
	}
	account := *st.Account

	if token, ok := st.TokenFor(account); ok {
		return token, nil
	}

	v, err, shared := s.group.Do(account.Hex(), func() (any, error) {
		return s.login(ctx, svc, account)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug(ctx, "joined in-flight login", "account", account.Hex())
	}
	return bytes.Clone(v.([]byte)), nil
}

func (s *SessionManager) login(ctx context.Context, svc ChatBot, account common.Address) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "session.login",
		trace.WithAttributes(attribute.String("account", account.Hex())))
	defer span.End()

	// Another caller may have finished a login between the cache check and
	// joining the flight.
	st := s.wallet.State()
	if token, ok := st.TokenFor(account); ok {
		return token, nil
	}

	token, err := s.signIn(ctx, svc, account, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}

	if _, err := s.wallet.Update(ctx, walletDomain.SetAuth(account, token)); err != nil {
		return nil, err
	}

	span.SetStatus(codes.Ok, "logged in")
	s.logger.Info(ctx, "chatbot session established", "account", account.Hex())
	return token, nil
}

func (s *SessionManager) signIn(ctx context.Context, svc ChatBot, account common.Address, st walletDomain.State) ([]byte, error) {
	signer, err := s.wallet.UnwrappedSigner(ctx)
	if err != nil {
		return nil, err
	}
	if signer.Address() != account {
		return nil, apperror.New(apperror.CodeAuthFailed,
			apperror.WithContext("active account changed during sign-in"))
	}

	dom, err := svc.Domain(ctx)
	if err != nil {
		return nil, err
	}

	var chainID uint64
	if st.ChainID != nil {
		chainID = st.ChainID.Uint64()
	}
	msg := domain.NewSiweMessage(dom, account, chainID, s.nonce(), s.now()).String()

	sig, err := signer.SignMessage(ctx, []byte(msg))
	if err != nil {
		return nil, err
	}
	rsv, err := domain.SplitSignature(sig)
	if err != nil {
		return nil, err
	}

	return svc.Login(ctx, msg, rsv)
}

// Logout drops the cached token.
func (s *SessionManager) Logout(ctx context.Context) error {
	_, err := s.wallet.Update(ctx, walletDomain.Logout())
	return err
}
