package memory

import (
	"context"
	"sync"

	"github.com/espalierhq/espalier/pkg/flow"
)

// ResponseStore implements ports.ResponseStore in memory.
// Safe for concurrent use.
type ResponseStore struct {
	data map[string]*flow.Response
	mu   sync.RWMutex
}

// NewResponseStore creates a new in-memory response store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		data: make(map[string]*flow.Response),
	}
}

// copyResponse isolates stored state from caller mutation, similar to what
// serialization gives the remote backends.
func copyResponse(r *flow.Response) *flow.Response {
	cp := *r
	cp.Visited = append([]int64(nil), r.Visited...)
	cp.Answers = make(map[int64]flow.Answer, len(r.Answers))
	for k, v := range r.Answers {
		cp.Answers[k] = v
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// Save persists the response in memory.
func (s *ResponseStore) Save(ctx context.Context, responseID string, r *flow.Response) error {
	cp := copyResponse(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[responseID] = cp
	return nil
}

// Load retrieves the response from memory.
func (s *ResponseStore) Load(ctx context.Context, responseID string) (*flow.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[responseID]
	if !ok {
		return nil, flow.ErrResponseNotFound
	}
	return copyResponse(r), nil
}

// Delete removes the response.
func (s *ResponseStore) Delete(ctx context.Context, responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, responseID)
	return nil
}

// List returns stored response IDs.
func (s *ResponseStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
