package governance

import (
	"sync"

	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// Registry holds every live store aggregate.
type Registry struct {
	mu     sync.RWMutex
	stores map[uuid.UUID]*Store
}

// NewRegistry builds an empty store registry.
func NewRegistry() *Registry {
	return &Registry{stores: map[uuid.UUID]*Store{}}
}

// Create founds a new store and registers it.
func (r *Registry) Create(name string, founderID uuid.UUID) (*Store, error) {
	store, err := NewStore(uuid.New(), name, founderID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.ID()] = store
	return store, nil
}

// Get returns the store or a not-found error.
func (r *Registry) Get(id uuid.UUID) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return store, nil
}

// List returns every registered store.
func (r *Registry) List() []*Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Store, 0, len(r.stores))
	for _, store := range r.stores {
		out = append(out, store)
	}
	return out
}
