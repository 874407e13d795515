// Package wallet implements the wallet connection bounded context.
package wallet

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	networkDI "github.com/fd1az/promptchain/business/network/di"
	"github.com/fd1az/promptchain/business/wallet/app"
	walletDI "github.com/fd1az/promptchain/business/wallet/di"
	"github.com/fd1az/promptchain/business/wallet/infra/eip1193"
	"github.com/fd1az/promptchain/business/wallet/infra/ethereum"
	"github.com/fd1az/promptchain/business/wallet/infra/sapphire"
	"github.com/fd1az/promptchain/internal/config"
	"github.com/fd1az/promptchain/internal/di"
	"github.com/fd1az/promptchain/internal/logger"
	"github.com/fd1az/promptchain/internal/monolith"
)

const runtimeKeyTTL = 10 * time.Minute

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Gateway (private)
	di.RegisterToken(c, walletDI.Gateway, func(sr di.ServiceRegistry) *eip1193.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gwCfg := eip1193.DefaultConfig(cfg.Gateway.URL, cfg.Gateway.LedgerEndpoint())
		gwCfg.RequestTimeout = cfg.Gateway.RequestTimeout
		gwCfg.RequestsPerSecond = cfg.Gateway.RequestsPerSecond
		gwCfg.Burst = cfg.Gateway.Burst
		gwCfg.MaxReconnects = cfg.Gateway.MaxReconnects
		gwCfg.InitialBackoff = cfg.Gateway.InitialBackoff
		gwCfg.MaxBackoff = cfg.Gateway.MaxBackoff

		gw, err := eip1193.NewGateway(gwCfg, log)
		if err != nil {
			panic("failed to create wallet gateway: " + err.Error())
		}
		return gw
	})

	// Register Dialer (private)
	di.RegisterToken(c, walletDI.Dialer, func(sr di.ServiceRegistry) app.LedgerDialer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ledgerCfg := ethereum.DefaultLedgerConfig("session")
		ledgerCfg.GasPriceTTL = cfg.RPC.GasPriceTTL
		ledgerCfg.RequestTimeout = cfg.RPC.RequestTimeout
		return ethereum.NewDialer(ledgerCfg, log)
	})

	// Register Fallback (private). Nil when no fallback node is configured.
	di.RegisterToken(c, walletDI.Fallback, func(sr di.ServiceRegistry) app.Ledger {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, _ := sr.Get("fallbackClient").(*ethclient.Client)
		if client == nil {
			return nil
		}

		ledgerCfg := ethereum.DefaultLedgerConfig("fallback")
		ledgerCfg.GasPriceTTL = cfg.RPC.GasPriceTTL
		ledgerCfg.RequestTimeout = cfg.RPC.RequestTimeout
		ledgerCfg.OwnsClient = false

		ledger, err := ethereum.NewLedger(client, ledgerCfg, log)
		if err != nil {
			panic("failed to create fallback ledger: " + err.Error())
		}
		return ledger
	})

	// Register Sealer (private)
	di.RegisterToken(c, walletDI.Sealer, func(sr di.ServiceRegistry) *sapphire.Sealer {
		log := sr.Get("logger").(logger.LoggerInterface)
		return sapphire.NewSealer(walletDI.GetGateway(sr), runtimeKeyTTL, log)
	})

	// Register Registration (private). Shared by every Manager on this gateway.
	di.RegisterToken(c, walletDI.Registration, func(di.ServiceRegistry) *app.Registration {
		return &app.Registration{}
	})

	// Register Manager (public - consumed by the chatbot module)
	di.RegisterToken(c, walletDI.Manager, func(sr di.ServiceRegistry) *app.Manager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		mgrCfg := app.DefaultManagerConfig(cfg.Network.DefaultChainID)
		mgrCfg.PollInterval = cfg.ChatBot.ConfirmationPollInterval
		if cfg.ChatBot.ConfirmationTimeout > 0 {
			mgrCfg.ConfirmationTimeout = cfg.ChatBot.ConfirmationTimeout
		}

		return app.NewManager(
			mgrCfg,
			walletDI.GetGateway(sr),
			walletDI.GetDialer(sr),
			networkDI.GetDirectory(sr),
			walletDI.GetSealer(sr),
			walletDI.GetFallback(sr),
			walletDI.GetRegistration(sr),
			log,
		)
	})

	return nil
}

// Startup dials the wallet agent. An unreachable agent is not fatal: the
// gateway keeps redialing and callers see CodeGatewayUnavailable.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	gw := walletDI.GetGateway(sr)
	mgr := walletDI.GetManager(sr)

	mono.OnClose(mgr)
	mono.OnClose(walletDI.GetSealer(sr))
	mono.OnClose(gw)
	if fallback := walletDI.GetFallback(sr); fallback != nil {
		mono.OnClose(ledgerCloser{fallback})
	}

	mono.Health().RegisterCheck("gateway", func(ctx context.Context) (bool, string) {
		if !gw.Available(ctx) {
			return false, "wallet agent unreachable"
		}
		return true, "connected"
	})

	if err := gw.Connect(ctx); err != nil {
		log.Warn(ctx, "wallet agent not reachable at startup", "error", err)
	}

	log.Info(ctx, "wallet module started",
		"gateway", mono.Config().Gateway.URL,
		"default_chain", mono.Config().Network.DefaultChainID)
	return nil
}

type ledgerCloser struct{ app.Ledger }

func (l ledgerCloser) Close() error {
	l.Ledger.Close()
	return nil
}
