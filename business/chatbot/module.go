// Package chatbot implements the contract-backed chatbot bounded context.
package chatbot

import (
	"context"

	"github.com/fd1az/promptchain/business/chatbot/app"
	chatbotDI "github.com/fd1az/promptchain/business/chatbot/di"
	"github.com/fd1az/promptchain/business/chatbot/infra/contract"
	walletDI "github.com/fd1az/promptchain/business/wallet/di"
	"github.com/fd1az/promptchain/internal/config"
	"github.com/fd1az/promptchain/internal/di"
	"github.com/fd1az/promptchain/internal/logger"
	"github.com/fd1az/promptchain/internal/monolith"
)

// Module implements the chatbot bounded context.
type Module struct{}

// RegisterServices registers all chatbot services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Factory (private)
	di.RegisterToken(c, chatbotDI.Factory, func(sr di.ServiceRegistry) app.Factory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		f, err := contract.NewFactory(contract.Config{
			Address:      cfg.ChatBot.ContractAddressHex(),
			PollInterval: cfg.ChatBot.ConfirmationPollInterval,
		}, walletDI.GetManager(sr), log)
		if err != nil {
			panic("failed to create chatbot contract factory: " + err.Error())
		}
		return f
	})

	// Register Session (private)
	di.RegisterToken(c, chatbotDI.Session, func(sr di.ServiceRegistry) *app.SessionManager {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewSessionManager(walletDI.GetManager(sr), log)
	})

	// Register Service (public - used by the CLI)
	di.RegisterToken(c, chatbotDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svcCfg := app.DefaultServiceConfig()
		svcCfg.ClearGasLimit = cfg.ChatBot.ClearGasLimit

		return app.NewService(svcCfg,
			walletDI.GetManager(sr),
			chatbotDI.GetFactory(sr),
			chatbotDI.GetSession(sr),
			log,
		)
	})

	return nil
}

// Startup initializes the chatbot module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := chatbotDI.GetService(mono.Services())
	mono.OnClose(svc)

	mono.Logger().Info(ctx, "chatbot module started",
		"contract", mono.Config().ChatBot.ContractAddressHex().Hex(),
		"clear_gas_limit", mono.Config().ChatBot.ClearGasLimit)
	return nil
}
