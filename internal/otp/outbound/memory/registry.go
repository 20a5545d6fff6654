package memory

import (
	"context"
	"sync"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
)

// Registry is an in-memory set of registered destinations.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]struct{}
}

func NewRegistry(dests ...entity.Destination) *Registry {
	r := &Registry{accounts: make(map[string]struct{}, len(dests))}
	for _, d := range dests {
		r.accounts[d.Key()] = struct{}{}
	}
	return r
}

func (r *Registry) Add(dest entity.Destination) {
	r.mu.Lock()
	r.accounts[dest.Key()] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) IsRegistered(ctx context.Context, dest entity.Destination) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[dest.Key()]
	return ok, nil
}
