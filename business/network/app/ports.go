// Package app contains the network directory service and its ports.
package app

import (
	"context"

	"github.com/fd1az/promptchain/business/network/domain"
)

// Source fetches network metadata from an external chain list.
type Source interface {
	// Fetch returns every network the source knows about.
	Fetch(ctx context.Context) ([]*domain.Network, error)
}

// Directory maps chain ids to network metadata.
type Directory interface {
	// Lookup fails with CodeUnknownNetwork when chainID is not known.
	Lookup(ctx context.Context, chainID uint64) (*domain.Network, error)
}
