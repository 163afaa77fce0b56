package session

import (
	"context"
	"sync"

	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes response access within this process. It uses reference
// counting to garbage collect unused locks.
type Manager struct {
	store ports.ResponseStore

	mu    sync.Mutex            // global lock for the map
	locks map[string]*lockEntry // active per-response locks
}

// NewManager creates a new Manager over the given response store.
func NewManager(store ports.ResponseStore) *Manager {
	return &Manager{
		store: store,
		locks: make(map[string]*lockEntry),
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu and call release(responseID) after unlocking.
func (m *Manager) acquire(responseID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[responseID]
	if !exists {
		entry = &lockEntry{}
		m.locks[responseID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(responseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[responseID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, responseID)
	}
}

// WithLock executes fn while holding the in-process lock for the response.
func (m *Manager) WithLock(ctx context.Context, responseID string, fn func(context.Context) error) error {
	entry := m.acquire(responseID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(responseID)
	}()

	return fn(ctx)
}

// Load retrieves a response from the store.
func (m *Manager) Load(ctx context.Context, responseID string) (*flow.Response, error) {
	var r *flow.Response
	err := m.WithLock(ctx, responseID, func(ctx context.Context) error {
		var err error
		r, err = m.store.Load(ctx, responseID)
		return err
	})
	return r, err
}

// Save persists a response.
func (m *Manager) Save(ctx context.Context, responseID string, r *flow.Response) error {
	return m.WithLock(ctx, responseID, func(ctx context.Context) error {
		return m.store.Save(ctx, responseID, r)
	})
}

// Delete removes a response.
func (m *Manager) Delete(ctx context.Context, responseID string) error {
	return m.WithLock(ctx, responseID, func(ctx context.Context) error {
		return m.store.Delete(ctx, responseID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying response store.
func (m *Manager) Store() ports.ResponseStore {
	return m.store
}
