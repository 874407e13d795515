// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/fd1az/promptchain/business/wallet/app"
	"github.com/fd1az/promptchain/business/wallet/infra/eip1193"
	"github.com/fd1az/promptchain/business/wallet/infra/sapphire"
	"github.com/fd1az/promptchain/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Manager = di.NewToken[*app.Manager]("wallet.Manager")
)

// Private dependency tokens - internal to wallet module
var (
	Gateway      = di.NewToken[*eip1193.Gateway]("wallet:gateway")
	Dialer       = di.NewToken[app.LedgerDialer]("wallet:dialer")
	Fallback     = di.NewToken[app.Ledger]("wallet:fallback")
	Sealer       = di.NewToken[*sapphire.Sealer]("wallet:sealer")
	Registration = di.NewToken[*app.Registration]("wallet:registration")
)

// Helper functions for type-safe access
func GetManager(c di.ServiceRegistry) *app.Manager {
	return di.GetToken(c, Manager)
}

func GetGateway(c di.ServiceRegistry) *eip1193.Gateway {
	return di.GetToken(c, Gateway)
}

func GetDialer(c di.ServiceRegistry) app.LedgerDialer {
	return di.GetToken(c, Dialer)
}

func GetFallback(c di.ServiceRegistry) app.Ledger {
	return di.GetToken(c, Fallback)
}

func GetSealer(c di.ServiceRegistry) *sapphire.Sealer {
	return di.GetToken(c, Sealer)
}

func GetRegistration(c di.ServiceRegistry) *app.Registration {
	return di.GetToken(c, Registration)
}
