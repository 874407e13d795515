// Package chainlist fetches network metadata from a chainid.network style
// JSON list.
package chainlist

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/promptchain/business/network/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/circuitbreaker"
	"github.com/fd1az/promptchain/internal/httpclient"
	"github.com/fd1az/promptchain/internal/logger"
)

const (
	tracerName = "github.com/fd1az/promptchain/business/network/infra/chainlist"
	meterName  = "github.com/fd1az/promptchain/business/network/infra/chainlist"
)

// Config holds chain list client configuration.
type Config struct {
	URL            string
	RequestTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		RequestTimeout: 15 * time.Second,
	}
}

type chainEntry struct {
	Name           string   `json:"name"`
	ChainID        uint64   `json:"chainId"`
	RPC            []string `json:"rpc"`
	NativeCurrency struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"nativeCurrency"`
	Explorers []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"explorers"`
}

type clientMetrics struct {
	fetches metric.Int64Counter
	chains  metric.Int64Gauge
}

// Client implements app.Source over HTTP.
type Client struct {
	config Config
	logger logger.LoggerInterface
	http   *httpclient.InstrumentedClient
	cb     *circuitbreaker.CircuitBreaker[[]chainEntry]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a chain list client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("chainlist url is required"))
	}

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("chainlist"),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("init http client: %w", err)
	}

	c := &Client{
		config: cfg,
		logger: log,
		http:   hc,
		tracer: otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("chainlist")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[[]chainEntry](cbCfg)

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.fetches, err = meter.Int64Counter(
		"chainlist_fetches_total",
		metric.WithDescription("Chain list fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.chains, err = meter.Int64Gauge(
		"chainlist_networks",
		metric.WithDescription("Networks accepted from the last chain list"),
	)
	return err
}

// Fetch downloads the chain list and converts it to networks. Entries
// without an explorer are dropped.
func (c *Client) Fetch(ctx context.Context) ([]*domain.Network, error) {
	ctx, span := c.tracer.Start(ctx, "chainlist.fetch",
		trace.WithAttributes(attribute.String("url", c.config.URL)),
	)
	defer span.End()

	c.metrics.fetches.Add(ctx, 1)

	entries, err := c.cb.Execute(func() ([]chainEntry, error) {
		var out []chainEntry
		if _, err := c.http.NewRequest().SetResult(&out).Get(ctx, c.config.URL); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch chain list"))
	}

	networks := make([]*domain.Network, 0, len(entries))
	for _, e := range entries {
		if n := toNetwork(e); n != nil {
			networks = append(networks, n)
		}
	}

	c.metrics.chains.Record(ctx, int64(len(networks)))
	span.SetAttributes(attribute.Int("networks", len(networks)))
	span.SetStatus(codes.Ok, "fetched")
	c.logger.Debug(ctx, "chain list fetched", "entries", len(entries), "networks", len(networks))

	return networks, nil
}

func toNetwork(e chainEntry) *domain.Network {
	explorers := make([]string, 0, len(e.Explorers))
	for _, x := range e.Explorers {
		if x.URL != "" {
			explorers = append(explorers, x.URL)
		}
	}
	if e.ChainID == 0 || e.Name == "" || len(explorers) == 0 || e.NativeCurrency.Symbol == "" {
		return nil
	}
	decimals := e.NativeCurrency.Decimals
	if decimals == 0 {
		decimals = 18
	}
	return &domain.Network{
		ChainID:      e.ChainID,
		Name:         e.Name,
		ExplorerURLs: explorers,
		RPCURLs:      e.RPC,
		Currency:     asset.NewNative(e.ChainID, e.NativeCurrency.Symbol, e.NativeCurrency.Name, decimals),
		Sapphire:     domain.IsSapphire(e.ChainID),
	}
}
