// Package ethereum provides the ledger client over go-ethereum.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/promptchain/business/wallet/app"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/cache"
	"github.com/fd1az/promptchain/internal/circuitbreaker"
	"github.com/fd1az/promptchain/internal/logger"
)

const (
	tracerName = "github.com/fd1az/promptchain/business/wallet/infra/ethereum"
	meterName  = "github.com/fd1az/promptchain/business/wallet/infra/ethereum"

	gasPriceKey = "current"
)

// LedgerConfig holds ledger client configuration.
type LedgerConfig struct {
	Name           string
	GasPriceTTL    time.Duration // how long a suggested gas price is reused
	RequestTimeout time.Duration
	// OwnsClient closes the underlying client on Close.
	OwnsClient bool
}

// DefaultLedgerConfig returns sensible defaults.
func DefaultLedgerConfig(name string) LedgerConfig {
	return LedgerConfig{
		Name:           name,
		GasPriceTTL:    6 * time.Second, // ~1 Sapphire block
		RequestTimeout: 30 * time.Second,
		OwnsClient:     true,
	}
}

type ledgerMetrics struct {
	calls         metric.Int64Counter
	callErrors    metric.Int64Counter
	gasPriceGwei  metric.Float64Gauge
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	callLatencyMs metric.Float64Histogram
}

// Ledger implements app.Ledger over an ethclient.
type Ledger struct {
	config LedgerConfig
	logger logger.LoggerInterface
	client *ethclient.Client

	priceCache *cache.Cache[string, *big.Int]
	cb         *circuitbreaker.CircuitBreaker[any]

	tracer  trace.Tracer
	metrics *ledgerMetrics
	attrs   metric.MeasurementOption
}

var _ app.Ledger = (*Ledger)(nil)

// NewLedger wraps client.
func NewLedger(client *ethclient.Client, cfg LedgerConfig, log logger.LoggerInterface) (*Ledger, error) {
	l := &Ledger{
		config:     cfg,
		logger:     log,
		client:     client,
		priceCache: cache.New[string, *big.Int](time.Minute),
		tracer:     otel.Tracer(tracerName),
		attrs:      metric.WithAttributes(attribute.String("ledger", cfg.Name)),
	}

	if err := l.initMetrics(); err != nil {
		l.priceCache.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	l.initCircuitBreaker()
	return l, nil
}

func (l *Ledger) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	l.metrics = &ledgerMetrics{}

	l.metrics.calls, err = meter.Int64Counter(
		"ledger_calls_total",
		metric.WithDescription("Ledger RPC calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	l.metrics.callErrors, err = meter.Int64Counter(
		"ledger_call_errors_total",
		metric.WithDescription("Ledger RPC calls that failed"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	l.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	l.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	l.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	l.metrics.callLatencyMs, err = meter.Float64Histogram(
		"ledger_call_latency_ms",
		metric.WithDescription("Ledger RPC latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// initCircuitBreaker trips on transport failures only. JSON-RPC error
// replies and missing receipts mean the node answered.
func (l *Ledger) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("ledger-" + l.config.Name)
	cfg.IsSuccessful = func(err error) bool {
		if err == nil || errors.Is(err, ethereum.NotFound) {
			return true
		}
		var rpcErr rpc.Error
		return errors.As(err, &rpcErr)
	}
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		l.logger.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	l.cb = circuitbreaker.New[any](cfg)
}

// execute runs fn through the breaker with tracing, metrics and the
// request timeout.
func execute[T any](ctx context.Context, l *Ledger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+op,
		trace.WithAttributes(attribute.String("ledger", l.config.Name)))
	defer span.End()

	if l.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	l.metrics.calls.Add(ctx, 1, l.attrs)

	v, err := l.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	l.metrics.callLatencyMs.Record(ctx, float64(time.Since(start).Microseconds())/1000, l.attrs)

	if err != nil {
		var zero T
		if errors.Is(err, ethereum.NotFound) {
			span.AddEvent("not_found")
			return zero, err
		}
		l.metrics.callErrors.Add(ctx, 1, l.attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(l.config.Name))
		}
		return zero, apperror.New(apperror.CodeLedgerRPCError,
			apperror.WithCause(err),
			apperror.WithContext(op))
	}

	span.SetStatus(codes.Ok, op)
	out, _ := v.(T)
	return out, nil
}

// ChainID returns the chain id the node serves.
func (l *Ledger) ChainID(ctx context.Context) (*big.Int, error) {
	return execute(ctx, l, "chain_id", func(ctx context.Context) (*big.Int, error) {
		return l.client.ChainID(ctx)
	})
}

// BlockNumber returns the latest block number.
func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	return execute(ctx, l, "block_number", func(ctx context.Context) (uint64, error) {
		return l.client.BlockNumber(ctx)
	})
}

// SuggestGasPrice returns the gas price, cached for GasPriceTTL.
func (l *Ledger) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if price, found := l.priceCache.Get(ctx, gasPriceKey); found {
		l.metrics.cacheHits.Add(ctx, 1, l.attrs)
		return new(big.Int).Set(price), nil
	}
	l.metrics.cacheMisses.Add(ctx, 1, l.attrs)

	wei, err := execute(ctx, l, "gas_price", func(ctx context.Context) (*big.Int, error) {
		return l.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}

	l.priceCache.Set(ctx, gasPriceKey, wei, l.config.GasPriceTTL)

	gwei, _ := asset.NewAmount(asset.ETH, wei).Gwei().Float64()
	l.metrics.gasPriceGwei.Record(ctx, gwei, l.attrs)

	return new(big.Int).Set(wei), nil
}

// CallContract executes a read-only call.
func (l *Ledger) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return execute(ctx, l, "call", func(ctx context.Context) ([]byte, error) {
		return l.client.CallContract(ctx, msg, blockNumber)
	})
}

// TransactionReceipt returns ethereum.NotFound until the tx is mined.
func (l *Ledger) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return execute(ctx, l, "receipt", func(ctx context.Context) (*types.Receipt, error) {
		return l.client.TransactionReceipt(ctx, hash)
	})
}

// TransactionByHash returns the transaction and whether it is pending.
func (l *Ledger) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	type result struct {
		tx      *types.Transaction
		pending bool
	}
	r, err := execute(ctx, l, "transaction", func(ctx context.Context) (result, error) {
		tx, pending, err := l.client.TransactionByHash(ctx, hash)
		return result{tx, pending}, err
	})
	return r.tx, r.pending, err
}

// FilterLogs queries historical logs.
func (l *Ledger) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return execute(ctx, l, "filter_logs", func(ctx context.Context) ([]types.Log, error) {
		return l.client.FilterLogs(ctx, q)
	})
}

// SubscribeFilterLogs streams matching logs. It needs a WebSocket endpoint.
// The subscription outlives the call so it bypasses the request timeout.
func (l *Ledger) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.subscribe_logs")
	defer span.End()

	sub, err := l.client.SubscribeFilterLogs(ctx, q, ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		return nil, apperror.New(apperror.CodeLedgerRPCError,
			apperror.WithCause(err),
			apperror.WithContext("subscribe logs"))
	}
	span.SetStatus(codes.Ok, "subscribed")
	return sub, nil
}

// Close releases the client when owned and stops the cache.
func (l *Ledger) Close() {
	if l.config.OwnsClient {
		l.client.Close()
	}
	l.priceCache.Close()
}

// Dialer opens session-scoped ledgers.
type Dialer struct {
	config LedgerConfig
	logger logger.LoggerInterface
}

var _ app.LedgerDialer = (*Dialer)(nil)

// NewDialer creates a Dialer. Every dialed ledger owns its client.
func NewDialer(cfg LedgerConfig, log logger.LoggerInterface) *Dialer {
	cfg.OwnsClient = true
	return &Dialer{config: cfg, logger: log}
}

// Dial connects to endpoint.
func (d *Dialer) Dial(ctx context.Context, endpoint string) (app.Ledger, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(endpoint))
	}

	l, err := NewLedger(client, d.config, d.logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	d.logger.Debug(ctx, "ledger dialed", "endpoint", endpoint)
	return l, nil
}
