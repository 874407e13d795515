package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fd1az/promptchain/business/network/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/cache"
	"github.com/fd1az/promptchain/internal/logger"
)

const chainlistKey = "chainlist"

// DirectoryService resolves chain ids against the builtin table and, when a
// Source is configured, a cached chain list.
type DirectoryService struct {
	builtin  map[uint64]*domain.Network
	source   Source
	registry *asset.Registry
	log      logger.LoggerInterface

	lists *cache.Cache[string, map[uint64]*domain.Network]
	ttl   time.Duration
	group singleflight.Group
}

var _ Directory = (*DirectoryService)(nil)

// NewDirectoryService creates a DirectoryService. source may be nil.
func NewDirectoryService(source Source, registry *asset.Registry, ttl time.Duration, log logger.LoggerInterface) *DirectoryService {
	if registry == nil {
		registry = asset.NewRegistry()
	}
	builtin := make(map[uint64]*domain.Network)
	for _, n := range domain.Builtin() {
		builtin[n.ChainID] = n
		registry.Register(n.Currency)
	}
	return &DirectoryService{
		builtin:  builtin,
		source:   source,
		registry: registry,
		log:      log,
		lists:    cache.New[string, map[uint64]*domain.Network](time.Minute),
		ttl:      ttl,
	}
}

// Lookup returns a copy of the network registered for chainID.
func (s *DirectoryService) Lookup(ctx context.Context, chainID uint64) (*domain.Network, error) {
	if n, ok := s.builtin[chainID]; ok {
		return n.Clone(), nil
	}
	if s.source == nil {
		return nil, unknownNetwork(chainID)
	}

	list, err := s.chainlist(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := list[chainID]
	if !ok {
		return nil, unknownNetwork(chainID)
	}
	return n.Clone(), nil
}

// Known lists the builtin networks.
func (s *DirectoryService) Known() []*domain.Network {
	out := make([]*domain.Network, 0, len(s.builtin))
	for _, n := range domain.Builtin() {
		out = append(out, s.builtin[n.ChainID].Clone())
	}
	return out
}

// Close stops the chain list cache.
func (s *DirectoryService) Close() {
	s.lists.Close()
}

func (s *DirectoryService) chainlist(ctx context.Context) (map[uint64]*domain.Network, error) {
	if list, ok := s.lists.Get(ctx, chainlistKey); ok {
		return list, nil
	}

	v, err, _ := s.group.Do(chainlistKey, func() (any, error) {
		networks, err := s.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}

		list := make(map[uint64]*domain.Network, len(networks))
		for _, n := range networks {
			if err := n.Validate(); err != nil {
				continue
			}
			list[n.ChainID] = n
			if _, ok := s.registry.GetNative(n.ChainID); !ok {
				s.registry.Register(n.Currency)
			}
		}
		s.lists.Set(ctx, chainlistKey, list, s.ttl)
		s.log.Debug(ctx, "chain list loaded", "networks", len(list))
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[uint64]*domain.Network), nil
}

func unknownNetwork(chainID uint64) error {
	return apperror.New(apperror.CodeUnknownNetwork,
		apperror.WithContext(fmt.Sprintf("chain id %d", chainID)))
}
