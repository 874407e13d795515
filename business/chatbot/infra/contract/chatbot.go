// Package contract implements the chatbot port over the ChatBot contract.
package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/promptchain/business/chatbot/app"
	"github.com/fd1az/promptchain/business/chatbot/domain"
	walletApp "github.com/fd1az/promptchain/business/wallet/app"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
)

const (
	tracerName = "github.com/fd1az/promptchain/business/chatbot/infra/contract"
	meterName  = "github.com/fd1az/promptchain/business/chatbot/infra/contract"

	eventAnswerSubmitted = "AnswerSubmitted"
)

// Wallet supplies the clients a ChatBot is bound to.
type Wallet interface {
	State() walletDomain.State
	Reader() (walletApp.Ledger, error)
	Signer(ctx context.Context) (walletApp.Signer, error)
}

var _ Wallet = (*walletApp.Manager)(nil)

// Config holds contract settings.
type Config struct {
	Address common.Address
	// PollInterval paces the log polling used when the ledger cannot
	// subscribe.
	PollInterval time.Duration
}

type contractMetrics struct {
	calls         metric.Int64Counter
	callErrors    metric.Int64Counter
	callLatencyMs metric.Float64Histogram
	txSent        metric.Int64Counter
}

// Factory builds ChatBot facades bound to the active connection.
type Factory struct {
	config Config
	wallet Wallet
	logger logger.LoggerInterface

	abi         abi.ABI
	answerEvent common.Hash

	tracer  trace.Tracer
	metrics *contractMetrics
}

var _ app.Factory = (*Factory)(nil)

// NewFactory parses the contract ABI and creates a Factory.
func NewFactory(cfg Config, wallet Wallet, log logger.LoggerInterface) (*Factory, error) {
	parsedABI, err := abi.JSON(strings.NewReader(ChatBotABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse chatbot ABI: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	f := &Factory{
		config:      cfg,
		wallet:      wallet,
		logger:      log,
		abi:         parsedABI,
		answerEvent: parsedABI.Events[eventAnswerSubmitted].ID,
		tracer:      otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *Factory) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &contractMetrics{}

	f.metrics.calls, err = meter.Int64Counter(
		"chatbot_calls_total",
		metric.WithDescription("Total chatbot contract view calls"),
	)
	if err != nil {
		return err
	}

	f.metrics.callErrors, err = meter.Int64Counter(
		"chatbot_call_errors_total",
		metric.WithDescription("Total failed chatbot contract view calls"),
	)
	if err != nil {
		return err
	}

	f.metrics.callLatencyMs, err = meter.Float64Histogram(
		"chatbot_call_latency_ms",
		metric.WithDescription("Chatbot contract view call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	f.metrics.txSent, err = meter.Int64Counter(
		"chatbot_transactions_total",
		metric.WithDescription("Total chatbot transactions submitted"),
	)
	return err
}

// ChatBot binds a facade to the current reader and signer.
func (f *Factory) ChatBot(ctx context.Context) (app.ChatBot, error) {
	st := f.wallet.State()
	if st.Account == nil {
		return nil, apperror.New(apperror.CodeNoAccount)
	}
	reader, err := f.wallet.Reader()
	if err != nil {
		return nil, err
	}
	signer, err := f.wallet.Signer(ctx)
	if err != nil {
		return nil, err
	}
	return &ChatBot{factory: f, account: *st.Account, reader: reader, signer: signer}, nil
}

// ChatBot is the contract facade for one account.
type ChatBot struct {
	factory *Factory
	account common.Address
	reader  walletApp.Ledger
	signer  walletApp.Signer
}

var _ app.ChatBot = (*ChatBot)(nil)

// Domain returns the sign-in domain the contract expects.
func (c *ChatBot) Domain(ctx context.Context) (string, error) {
	var out string
	return out, c.call(ctx, "domain", &out)
}

// Login exchanges a signed challenge for a session token.
func (c *ChatBot) Login(ctx context.Context, message string, sig domain.SignatureRSV) ([]byte, error) {
	var out []byte
	return out, c.call(ctx, "login", &out, message, sig)
}

// GetPrompts returns the prompts of account.
func (c *ChatBot) GetPrompts(ctx context.Context, token []byte, account common.Address) ([]string, error) {
	var out []string
	return out, c.call(ctx, "getPrompts", &out, token, account)
}

// GetAnswers returns the answers of account ordered by prompt id.
func (c *ChatBot) GetAnswers(ctx context.Context, token []byte, account common.Address) ([]domain.AnswerRecord, error) {
	var raw []answerTuple
	if err := c.call(ctx, "getAnswers", &raw, token, account); err != nil {
		return nil, err
	}

	out := make([]domain.AnswerRecord, len(raw))
	for i, a := range raw {
		if a.PromptId == nil || !a.PromptId.IsUint64() {
			return nil, apperror.New(apperror.CodeContractCallFailed,
				apperror.WithContext(fmt.Sprintf("answer %d has an invalid prompt id", i)))
		}
		out[i] = domain.AnswerRecord{PromptID: a.PromptId.Uint64(), Answer: a.Answer}
	}
	return out, nil
}

// AppendPrompt submits prompt.
func (c *ChatBot) AppendPrompt(ctx context.Context, prompt string) (common.Hash, error) {
	return c.transact(ctx, "appendPrompt", 0, prompt)
}

// ClearPrompt removes every prompt of the sender.
func (c *ChatBot) ClearPrompt(ctx context.Context, gasLimit uint64) (common.Hash, error) {
	return c.transact(ctx, "clearPrompt", gasLimit)
}

// call runs a view method and decodes its single return value into out.
func (c *ChatBot) call(ctx context.Context, method string, out any, args ...any) error {
	f := c.factory
	ctx, span := f.tracer.Start(ctx, "chatbot."+method,
		trace.WithAttributes(attribute.String("contract", f.config.Address.Hex())))
	defer span.End()

	start := time.Now()
	f.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))

	err := c.doCall(ctx, method, out, args...)
	f.metrics.callLatencyMs.Record(ctx, float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(attribute.String("method", method)))

	if err != nil {
		f.metrics.callErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return err
	}
	span.SetStatus(codes.Ok, method)
	return nil
}

func (c *ChatBot) doCall(ctx context.Context, method string, out any, args ...any) error {
	f := c.factory
	callData, err := f.abi.Pack(method, args...)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("encode "+method))
	}

	to := f.config.Address
	result, err := c.reader.CallContract(ctx, ethereum.CallMsg{
		From: c.account,
		To:   &to,
		Data: callData,
	}, nil)
	if err != nil {
		return err
	}

	outputs, err := f.abi.Unpack(method, result)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+method))
	}
	if len(outputs) != 1 {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %d values", method, len(outputs))))
	}

	if err := f.abi.Methods[method].Outputs.Copy(out, outputs); err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("convert "+method))
	}
	return nil
}

func (c *ChatBot) transact(ctx context.Context, method string, gasLimit uint64, args ...any) (common.Hash, error) {
	f := c.factory
	ctx, span := f.tracer.Start(ctx, "chatbot."+method,
		trace.WithAttributes(
			attribute.String("contract", f.config.Address.Hex()),
			attribute.Int64("gas_limit", int64(gasLimit)),
		))
	defer span.End()

	callData, err := f.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("encode "+method))
	}

	hash, err := c.signer.SendTransaction(ctx, walletApp.TxRequest{
		To:   f.config.Address,
		Data: callData,
		Gas:  gasLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return common.Hash{}, err
	}

	f.metrics.txSent.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	span.SetAttributes(attribute.String("tx", hash.Hex()))
	span.SetStatus(codes.Ok, "submitted")
	f.logger.Debug(ctx, "chatbot transaction submitted", "method", method, "tx", hash.Hex())
	return hash, nil
}

// WatchAnswerSubmitted streams the first AnswerSubmitted event for account.
// It subscribes when the ledger supports it and polls logs otherwise.
func (c *ChatBot) WatchAnswerSubmitted(ctx context.Context, account common.Address) (<-chan common.Address, error) {
	f := c.factory
	q := ethereum.FilterQuery{
		Addresses: []common.Address{f.config.Address},
		Topics:    [][]common.Hash{{f.answerEvent}, {common.BytesToHash(account.Bytes())}},
	}

	out := make(chan common.Address, 1)
	logs := make(chan types.Log, 4)

	sub, err := c.reader.SubscribeFilterLogs(ctx, q, logs)
	if err == nil {
		go c.streamAnswer(ctx, q, sub, logs, out)
		return out, nil
	}

	f.logger.Debug(ctx, "log subscription unavailable, polling", "error", err)
	from, err := c.reader.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	q.FromBlock = new(big.Int).SetUint64(from)
	go c.pollAnswer(ctx, q, out)
	return out, nil
}

func (c *ChatBot) streamAnswer(ctx context.Context, q ethereum.FilterQuery, sub ethereum.Subscription, logs <-chan types.Log, out chan<- common.Address) {
	defer sub.Unsubscribe()

	for {
		select {
		case l := <-logs:
			if deliver(out, l) {
				close(out)
				return
			}
			c.factory.logger.Debug(ctx, "skipping malformed answer log", "topics", len(l.Topics))
		case err := <-sub.Err():
			c.factory.logger.Warn(ctx, "answer subscription dropped, polling", "error", err)
			from, berr := c.reader.BlockNumber(ctx)
			if berr != nil {
				close(out)
				return
			}
			q.FromBlock = new(big.Int).SetUint64(from)
			c.pollAnswer(ctx, q, out)
			return
		case <-ctx.Done():
			close(out)
			return
		}
	}
}

func (c *ChatBot) pollAnswer(ctx context.Context, q ethereum.FilterQuery, out chan<- common.Address) {
	defer close(out)

	ticker := time.NewTicker(c.factory.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logs, err := c.reader.FilterLogs(ctx, q)
			if err != nil {
				c.factory.logger.Debug(ctx, "answer poll failed", "error", err)
				continue
			}
			for _, l := range logs {
				if deliver(out, l) {
					return
				}
			}
		}
	}
}

// deliver sends the indexed sender of l. Logs without it are rejected.
func deliver(out chan<- common.Address, l types.Log) bool {
	if len(l.Topics) < 2 {
		return false
	}
	out <- common.BytesToAddress(l.Topics[1].Bytes())
	return true
}
