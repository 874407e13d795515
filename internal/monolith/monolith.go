// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/config"
	"github.com/fd1az/promptchain/internal/di"
	"github.com/fd1az/promptchain/internal/health"
	"github.com/fd1az/promptchain/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	// FallbackClient is the read-only node used while no wallet is connected.
	FallbackClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
	Health() HealthRegistry
	// OnClose registers a service to be closed, in reverse order, by Close.
	OnClose(Closer)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// HealthRegistry collects readiness checks from modules.
type HealthRegistry interface {
	RegisterCheck(name string, check health.CheckFunc)
}

type noopHealth struct{}

func (noopHealth) RegisterCheck(string, health.CheckFunc) {}

// Closer is implemented by services the monolith shuts down on Close.
type Closer interface {
	Close() error
}

// App implements the Monolith interface.
type App struct {
	config         *config.Config
	logger         logger.LoggerInterface
	fallbackClient *ethclient.Client
	assetRegistry  *asset.Registry
	container      di.Container
	health         HealthRegistry
	closers        []Closer
}

// New creates a new Monolith instance. checks may be nil.
func New(cfg *config.Config, log logger.LoggerInterface, checks HealthRegistry) (*App, error) {
	var fallback *ethclient.Client
	if cfg.RPC.FallbackURL != "" {
		c, err := ethclient.Dial(cfg.RPC.FallbackURL)
		if err != nil {
			return nil, err
		}
		fallback = c
	}

	if checks == nil {
		checks = noopHealth{}
	}

	// Use default asset registry (pre-populated with the native coins)
	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("fallbackClient", fallback)
	container.Register("assetRegistry", assetRegistry)

	a := &App{
		config:         cfg,
		logger:         log,
		fallbackClient: fallback,
		assetRegistry:  assetRegistry,
		container:      container,
		health:         checks,
	}

	if fallback != nil {
		checks.RegisterCheck("rpc", a.checkFallback)
	}

	return a, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) FallbackClient() *ethclient.Client {
	return a.fallbackClient
}

func (a *App) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

func (a *App) Health() HealthRegistry {
	return a.health
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

func (a *App) OnClose(c Closer) {
	a.closers = append(a.closers, c)
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *App) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil

	if a.fallbackClient != nil {
		a.fallbackClient.Close()
	}
	return nil
}

func (a *App) checkFallback(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := a.fallbackClient.ChainID(ctx)
	if err != nil {
		return false, err.Error()
	}
	return true, "chain " + id.String()
}
