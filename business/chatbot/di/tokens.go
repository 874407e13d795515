// Package di contains dependency injection tokens for the chatbot context.
package di

import (
	"github.com/fd1az/promptchain/business/chatbot/app"
	"github.com/fd1az/promptchain/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("chatbot.Service")
)

// Private dependency tokens - internal to chatbot module
var (
	Session = di.NewToken[*app.SessionManager]("chatbot:session")
	Factory = di.NewToken[app.Factory]("chatbot:factory")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetSession(c di.ServiceRegistry) *app.SessionManager {
	return di.GetToken(c, Session)
}

func GetFactory(c di.ServiceRegistry) app.Factory {
	return di.GetToken(c, Factory)
}
