package eip1193

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/promptchain/business/wallet/app"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
	"github.com/fd1az/promptchain/internal/ratelimit"
	"github.com/fd1az/promptchain/internal/wsconn"
)

const (
	tracerName = "github.com/fd1az/promptchain/business/wallet/infra/eip1193"
	meterName  = "github.com/fd1az/promptchain/business/wallet/infra/eip1193"
)

// Config holds gateway configuration.
type Config struct {
	URL               string
	EndpointURL       string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxReconnects     int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, endpoint string) Config {
	return Config{
		URL:               url,
		EndpointURL:       endpoint,
		RequestTimeout:    2 * time.Minute,
		RequestsPerSecond: 10,
		Burst:             5,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
	}
}

type gatewayMetrics struct {
	requests      metric.Int64Counter
	requestErrors metric.Int64Counter
	notifications metric.Int64Counter
	parseErrors   metric.Int64Counter
}

// Gateway talks to the wallet agent.
type Gateway struct {
	config  Config
	logger  logger.LoggerInterface
	conn    *wsconn.Client
	limiter *ratelimit.Limiter

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan *Message

	handlersMu sync.RWMutex
	handlers   app.EventHandlers

	// set after the first successful connection so redials emit Connect
	seenConnected atomic.Bool

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

var _ app.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway. Connect dials the agent.
func NewGateway(cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	wsCfg := wsconn.DefaultConfig(cfg.URL, "wallet-agent")
	wsCfg.MaxReconnects = cfg.MaxReconnects
	if cfg.InitialBackoff > 0 {
		wsCfg.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		wsCfg.MaxBackoff = cfg.MaxBackoff
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		config:  cfg,
		logger:  log,
		conn:    conn,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		pending: make(map[int64]chan *Message),
		tracer:  otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	conn.OnMessage(g.handleMessage)
	conn.OnStateChange(g.handleState)

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.requests, err = meter.Int64Counter(
		"gateway_requests_total",
		metric.WithDescription("JSON-RPC requests sent to the wallet agent"),
	)
	if err != nil {
		return err
	}

	g.metrics.requestErrors, err = meter.Int64Counter(
		"gateway_request_errors_total",
		metric.WithDescription("JSON-RPC requests that failed"),
	)
	if err != nil {
		return err
	}

	g.metrics.notifications, err = meter.Int64Counter(
		"gateway_notifications_total",
		metric.WithDescription("Events pushed by the wallet agent"),
	)
	if err != nil {
		return err
	}

	g.metrics.parseErrors, err = meter.Int64Counter(
		"gateway_parse_errors_total",
		metric.WithDescription("Frames that could not be decoded"),
	)
	return err
}

// Connect dials the agent with backoff.
func (g *Gateway) Connect(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "eip1193.connect",
		trace.WithAttributes(attribute.String("url", g.config.URL)))
	defer span.End()

	if err := g.conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return apperror.New(apperror.CodeGatewayUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(g.config.URL))
	}

	span.SetStatus(codes.Ok, "connected")
	g.logger.Info(ctx, "wallet agent connected", "url", g.config.URL)
	return nil
}

// Available reports whether the agent connection is up.
func (g *Gateway) Available(context.Context) bool {
	return g.conn.IsConnected()
}

// Endpoint returns the JSON-RPC url for ledger clients.
func (g *Gateway) Endpoint() string {
	return g.config.EndpointURL
}

// Listen binds the event handlers.
func (g *Gateway) Listen(h app.EventHandlers) {
	g.handlersMu.Lock()
	g.handlers = h
	g.handlersMu.Unlock()
}

// RequestAccounts asks the agent for account access.
func (g *Gateway) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := g.call(ctx, MethodRequestAccounts, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns the accounts already authorized.
func (g *Gateway) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := g.call(ctx, MethodAccounts, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SwitchChain asks the agent to change chains.
func (g *Gateway) SwitchChain(ctx context.Context, chainID uint64) error {
	return g.call(ctx, MethodSwitchChain, []any{switchChainParams{ChainID: hexutil.Uint64(chainID)}}, nil)
}

// PersonalSign signs msg with EIP-191.
func (g *Gateway) PersonalSign(ctx context.Context, account common.Address, msg []byte) ([]byte, error) {
	var sig hexutil.Bytes
	if err := g.call(ctx, MethodPersonalSign, []any{hexutil.Encode(msg), account}, &sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// SendTransaction has the agent sign and broadcast tx.
func (g *Gateway) SendTransaction(ctx context.Context, from common.Address, tx app.TxRequest) (common.Hash, error) {
	params := sendTxParams{From: from, To: tx.To, Data: tx.Data}
	if tx.Gas > 0 {
		gas := hexutil.Uint64(tx.Gas)
		params.Gas = &gas
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		params.Value = (*hexutil.Big)(new(big.Int).Set(tx.Value))
	}

	var hash common.Hash
	if err := g.call(ctx, MethodSendTransaction, []any{params}, &hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// CallDataPublicKey returns the runtime key used to seal call data.
func (g *Gateway) CallDataPublicKey(ctx context.Context) ([]byte, error) {
	var res callDataPublicKey
	if err := g.call(ctx, MethodCallDataPublicKey, nil, &res); err != nil {
		return nil, err
	}
	return res.Key, nil
}

// Close fails pending requests and closes the connection.
func (g *Gateway) Close() error {
	err := g.conn.Close()
	g.failPending(&ProviderError{Code: app.ProviderDisconnected, Message: "gateway closed"})
	return err
}

func (g *Gateway) call(ctx context.Context, method string, params []any, result any) error {
	ctx, span := g.tracer.Start(ctx, "eip1193."+method)
	defer span.End()

	err := g.roundTrip(ctx, method, params, result)
	attrs := metric.WithAttributes(attribute.String("method", method))
	g.metrics.requests.Add(ctx, 1, attrs)
	if err != nil {
		g.metrics.requestErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return err
	}
	span.SetStatus(codes.Ok, "ok")
	return nil
}

func (g *Gateway) roundTrip(ctx context.Context, method string, params []any, result any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if g.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
		defer cancel()
	}

	if params == nil {
		params = []any{}
	}
	id := g.nextID.Add(1)
	ch := make(chan *Message, 1)

	g.pendingMu.Lock()
	g.pending[id] = ch
	g.pendingMu.Unlock()
	defer func() {
		g.pendingMu.Lock()
		delete(g.pending, id)
		g.pendingMu.Unlock()
	}()

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := g.conn.SendJSON(ctx, req); err != nil {
		return apperror.New(apperror.CodeGatewayUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return apperror.New(apperror.CodeInvalidFormat,
				apperror.WithCause(err),
				apperror.WithContext(method))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) handleMessage(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		g.metrics.parseErrors.Add(ctx, 1)
		g.logger.Debug(ctx, "failed to parse agent frame", "error", err, "data", string(data[:min(len(data), 200)]))
		return
	}

	if msg.ID != nil {
		g.pendingMu.Lock()
		ch, ok := g.pending[*msg.ID]
		g.pendingMu.Unlock()
		if ok {
			select {
			case ch <- &msg:
			default:
			}
		}
		return
	}

	if msg.Method != "" {
		g.metrics.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("event", msg.Method)))
		g.dispatch(ctx, msg.Method, msg.Params)
	}
}

func (g *Gateway) dispatch(ctx context.Context, event string, params json.RawMessage) {
	g.handlersMu.RLock()
	h := g.handlers
	g.handlersMu.RUnlock()

	switch event {
	case EventAccountsChanged:
		var args [][]common.Address
		if err := json.Unmarshal(params, &args); err != nil {
			g.parseFailed(ctx, event, err)
			return
		}
		var accounts []common.Address
		if len(args) > 0 {
			accounts = args[0]
		}
		if h.AccountsChanged != nil {
			h.AccountsChanged(accounts)
		}

	case EventChainChanged:
		var args []string
		if err := json.Unmarshal(params, &args); err != nil || len(args) == 0 {
			g.parseFailed(ctx, event, err)
			return
		}
		chainID, err := hexutil.DecodeBig(args[0])
		if err != nil {
			g.parseFailed(ctx, event, err)
			return
		}
		if h.ChainChanged != nil {
			h.ChainChanged(chainID)
		}

	case EventConnect:
		if h.Connect != nil {
			h.Connect()
		}

	case EventDisconnect:
		var args []ProviderError
		_ = json.Unmarshal(params, &args)
		var cause error = &ProviderError{Code: app.ProviderDisconnected, Message: "disconnected"}
		if len(args) > 0 {
			cause = &args[0]
		}
		if h.Disconnect != nil {
			h.Disconnect(cause)
		}

	default:
		g.logger.Debug(ctx, "ignoring agent event", "event", event)
	}
}

func (g *Gateway) parseFailed(ctx context.Context, event string, err error) {
	g.metrics.parseErrors.Add(ctx, 1)
	g.logger.Warn(ctx, "malformed agent event", "event", event, "error", err)
}

// handleState maps transport drops to disconnect events and redials to
// connect events.
func (g *Gateway) handleState(state wsconn.State, err error) {
	g.handlersMu.RLock()
	h := g.handlers
	g.handlersMu.RUnlock()

	switch state {
	case wsconn.StateConnected:
		if g.seenConnected.Swap(true) && h.Connect != nil {
			h.Connect()
		}
	case wsconn.StateDisconnected:
		if err == nil || !g.seenConnected.Load() {
			return
		}
		g.failPending(&ProviderError{Code: app.ProviderDisconnected, Message: err.Error()})
		if h.Disconnect != nil {
			h.Disconnect(err)
		}
	}
}

func (g *Gateway) failPending(err *ProviderError) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	for id, ch := range g.pending {
		select {
		case ch <- &Message{ID: &id, Error: err}:
		default:
		}
		delete(g.pending, id)
	}
}
