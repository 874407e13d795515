// Package network implements the network directory bounded context.
package network

import (
	"context"

	"github.com/fd1az/promptchain/business/network/app"
	networkDI "github.com/fd1az/promptchain/business/network/di"
	"github.com/fd1az/promptchain/business/network/infra/chainlist"
	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/config"
	"github.com/fd1az/promptchain/internal/di"
	"github.com/fd1az/promptchain/internal/logger"
	"github.com/fd1az/promptchain/internal/monolith"
)

// Module implements the network bounded context.
type Module struct{}

// RegisterServices registers all network services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Source (private). Nil when no chain list is configured.
	di.RegisterToken(c, networkDI.Source, func(sr di.ServiceRegistry) app.Source {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Network.ChainlistURL == "" {
			return nil
		}
		client, err := chainlist.NewClient(chainlist.DefaultConfig(cfg.Network.ChainlistURL), log)
		if err != nil {
			panic("failed to create chainlist client: " + err.Error())
		}
		return client
	})

	// Register Directory (public - consulted by the wallet module)
	di.RegisterToken(c, networkDI.Directory, func(sr di.ServiceRegistry) *app.DirectoryService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		return app.NewDirectoryService(networkDI.GetSource(sr), registry, cfg.Network.ChainlistTTL, log)
	})

	return nil
}

// Startup initializes the network module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	dir := networkDI.GetDirectory(mono.Services())
	mono.OnClose(closeFunc(dir.Close))

	log.Info(ctx, "network module started",
		"builtin", len(dir.Known()),
		"chainlist", mono.Config().Network.ChainlistURL != "")
	return nil
}

type closeFunc func()

func (f closeFunc) Close() error {
	f()
	return nil
}
