// Package di contains dependency injection tokens for the network context.
package di

import (
	"github.com/fd1az/promptchain/business/network/app"
	"github.com/fd1az/promptchain/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Directory = di.NewToken[*app.DirectoryService]("network.Directory")
)

// Private dependency tokens - internal to network module
var (
	Source = di.NewToken[app.Source]("network:source")
)

// Helper functions for type-safe access
func GetDirectory(c di.ServiceRegistry) *app.DirectoryService {
	return di.GetToken(c, Directory)
}

func GetSource(c di.ServiceRegistry) app.Source {
	return di.GetToken(c, Source)
}
