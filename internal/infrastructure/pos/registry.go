package pos

import (
	"sort"
	"sync"

	"github.com/posbridge/backend/internal/domain/possync"
)

// Registry implements ProviderRegistry over a fixed set of adapters
// registered at startup
type Registry struct {
	mu       sync.RWMutex
	adapters map[possync.ProviderCode]possync.ProviderAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[possync.ProviderCode]possync.ProviderAdapter),
	}
}

// Register adds an adapter. A later registration for the same code replaces
// the earlier one.
func (r *Registry) Register(adapter possync.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Code()] = adapter
}

// GetAdapter returns the adapter for a provider code
func (r *Registry) GetAdapter(code possync.ProviderCode) (possync.ProviderAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[code]
	if !ok {
		return nil, possync.ErrInvalidProviderCode
	}
	return adapter, nil
}

// ListAdapters returns all registered adapters in stable code order
func (r *Registry) ListAdapters() []possync.ProviderAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]possync.ProviderAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		adapters = append(adapters, adapter)
	}
	sort.Slice(adapters, func(i, j int) bool {
		return adapters[i].Code() < adapters[j].Code()
	})
	return adapters
}

// Ensure Registry implements ProviderRegistry
var _ possync.ProviderRegistry = (*Registry)(nil)
