package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/promptchain/business/chatbot/domain"
	walletApp "github.com/fd1az/promptchain/business/wallet/app"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
)

// ServiceConfig holds chatbot interaction settings.
type ServiceConfig struct {
	ClearGasLimit uint64
	// AnswerTimeout bounds how long an AnswerSubmitted watch stays open.
	AnswerTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ClearGasLimit: 1_000_000,
		AnswerTimeout: 10 * time.Minute,
	}
}

// Service performs chatbot interactions for the connected account.
type Service struct {
	config  ServiceConfig
	wallet  Wallet
	factory Factory
	session *SessionManager
	logger  logger.LoggerInterface
	tracer  trace.Tracer

	// answer watches outlive the Ask call that registered them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ask func(context.Context, string) (*types.Transaction, error)
}

// NewService creates a Service.
func NewService(cfg ServiceConfig, wallet Wallet, factory Factory, session *SessionManager, log logger.LoggerInterface) *Service {
	if cfg.ClearGasLimit == 0 {
		cfg.ClearGasLimit = DefaultServiceConfig().ClearGasLimit
	}
	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = DefaultServiceConfig().AnswerTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		config:  cfg,
		wallet:  wallet,
		factory: factory,
		session: session,
		logger:  log,
		tracer:  session.tracer,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.ask = walletApp.Wrap(wallet, s.appendPrompt)
	return s
}

// Ask appends prompt and waits for the transaction to be mined. The
// chatbot-waiting flag stays raised until the answer is submitted.
func (s *Service) Ask(ctx context.Context, prompt string) (*types.Transaction, error) {
	return s.ask(ctx, prompt)
}

func (s *Service) appendPrompt(ctx context.Context, prompt string) (*types.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "chatbot.ask",
		trace.WithAttributes(attribute.Int("prompt_len", len(prompt))))
	defer span.End()

	account, err := s.account()
	if err != nil {
		return nil, err
	}
	bot, err := s.factory.ChatBot(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bot.AppendPrompt(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("tx", hash.Hex()))

	watchCtx, stop := context.WithTimeout(s.ctx, s.config.AnswerTimeout)
	answered, err := bot.WatchAnswerSubmitted(watchCtx, account)
	if err != nil {
		stop()
		return nil, err
	}

	if _, err := s.wallet.Update(ctx, walletDomain.SetWaitingChatBot(true)); err != nil {
		stop()
		return nil, err
	}

	s.wg.Add(1)
	go s.awaitAnswer(watchCtx, stop, answered, hash)

	tx, err := s.wallet.WaitForTransaction(ctx, hash)
	if err != nil {
		stop()
		_, _ = s.wallet.Update(context.WithoutCancel(ctx), walletDomain.SetWaitingChatBot(false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirmation failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "prompt appended")
	s.logger.Info(ctx, "prompt appended", "tx", hash.Hex())
	return tx, nil
}

func (s *Service) awaitAnswer(ctx context.Context, stop context.CancelFunc, answered <-chan common.Address, tx common.Hash) {
	defer s.wg.Done()
	defer stop()

	sender, ok := <-answered
	if !ok {
		// Cancellation means the caller already reset the flag.
		switch err := ctx.Err(); {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, context.DeadlineExceeded):
			s.logger.Warn(ctx, "no answer submitted in time", "tx", tx.Hex())
		default:
			s.logger.Warn(s.ctx, "answer watch ended without an answer", "tx", tx.Hex())
		}
		_, _ = s.wallet.Update(s.ctx, walletDomain.SetWaitingChatBot(false))
		return
	}

	_, _ = s.wallet.Update(s.ctx, walletDomain.SetWaitingChatBot(false))
	s.logger.Info(s.ctx, "answer submitted", "sender", sender.Hex(), "tx", tx.Hex())
}

// Clear removes the account's prompts and waits for the transaction.
func (s *Service) Clear(ctx context.Context) (*types.Transaction, error) {
	return walletApp.Interact(ctx, s.wallet, func(ctx context.Context) (*types.Transaction, error) {
		ctx, span := s.tracer.Start(ctx, "chatbot.clear")
		defer span.End()

		bot, err := s.factory.ChatBot(ctx)
		if err != nil {
			return nil, err
		}
		hash, err := bot.ClearPrompt(ctx, s.config.ClearGasLimit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clear failed")
			return nil, err
		}
		return s.wallet.WaitForTransaction(ctx, hash)
	})
}

// PromptsAnswers returns the account's prompts aligned with their answers.
func (s *Service) PromptsAnswers(ctx context.Context) (*domain.PromptsAnswers, error) {
	ctx, span := s.tracer.Start(ctx, "chatbot.prompts_answers")
	defer span.End()

	account, err := s.account()
	if err != nil {
		return nil, err
	}
	bot, err := s.factory.ChatBot(ctx)
	if err != nil {
		return nil, err
	}
	token, err := s.session.AuthInfo(ctx, bot)
	if err != nil {
		return nil, err
	}

	var (
		prompts []string
		answers []domain.AnswerRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prompts, err = bot.GetPrompts(gctx, token, account)
		return err
	})
	g.Go(func() error {
		var err error
		answers, err = bot.GetAnswers(gctx, token, account)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("prompts", len(prompts)), attribute.Int("answers", len(answers)))
	return &domain.PromptsAnswers{
		Prompts: prompts,
		Answers: domain.Align(prompts, answers),
	}, nil
}

// Session returns the session manager.
func (s *Service) Session() *SessionManager {
	return s.session
}

// Close stops pending answer watches.
func (s *Service) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Service) account() (common.Address, error) {
	st := s.wallet.State()
	if st.Account == nil || !st.IsConnected {
		return common.Address{}, apperror.New(apperror.CodeNoAccount)
	}
	return *st.Account, nil
}
