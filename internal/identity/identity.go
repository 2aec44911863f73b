// Package identity provides the per-session client identity used to open
// connections and attribute locally sent messages.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/chancore/chancore/internal/store"
)

// Provider issues a stable, process-durable client identifier.
// The identity is created once and reused for the lifetime of the session;
// it is injected into the connection manager and the API client rather than
// read from ambient state.
type Provider interface {
	// GetOrCreate returns the session's client identifier, creating it on
	// first use.
	GetOrCreate(ctx context.Context) (string, error)
}

// StoreProvider persists the identity in the local session store, so the
// same client identifier survives process restarts.
type StoreProvider struct {
	store *store.Store

	mu     sync.Mutex
	cached string
}

// NewStoreProvider creates a Provider backed by the session store.
func NewStoreProvider(s *store.Store) *StoreProvider {
	return &StoreProvider{store: s}
}

// GetOrCreate returns the persisted client identifier, creating it on first use.
func (p *StoreProvider) GetOrCreate(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}
	id, err := p.store.GetOrCreateClientID(ctx)
	if err != nil {
		return "", err
	}
	p.cached = id
	return id, nil
}

// EphemeralProvider issues an identity that lives only for this process.
// Used when no session store is available, and in tests.
type EphemeralProvider struct {
	once sync.Once
	id   string
}

// NewEphemeralProvider creates a Provider with a fresh random identity.
func NewEphemeralProvider() *EphemeralProvider {
	return &EphemeralProvider{}
}

// GetOrCreate returns the process-lifetime client identifier.
func (p *EphemeralProvider) GetOrCreate(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.id = "client-" + uuid.New().String()
	})
	return p.id, nil
}

// Static is a fixed-identity Provider for tests.
type Static string

// GetOrCreate returns the fixed identity.
func (s Static) GetOrCreate(ctx context.Context) (string, error) {
	return string(s), nil
}
