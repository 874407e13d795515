package asset

import (
	"sort"
	"sync"
)

// Registry is a thread-safe set of known assets.
type Registry struct {
	mu   sync.RWMutex
	byID map[AssetID]*Asset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[AssetID]*Asset)}
}

// Register adds or replaces an asset.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}
	r.mu.Lock()
	r.byID[a.ID()] = a
	r.mu.Unlock()
}

// Get looks an asset up by id.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetNative returns the native coin of chainID.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// All returns every asset ordered by chain id.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ChainID() != result[j].ChainID() {
			return result[i].ChainID() < result[j].ChainID()
		}
		return result[i].ID().Address().Hex() < result[j].ID().Address().Hex()
	})
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
