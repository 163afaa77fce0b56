package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/espalierhq/espalier/pkg/flow"
)

// SurveyStore implements ports.SurveyStore in memory. It versions
// definitions with a monotonic counter per survey: every save bumps the
// version and clears the validated flag, so in-flight responses observe the
// change through the stale-version guard.
type SurveyStore struct {
	data     map[int64]*flow.Survey
	versions map[int64]int
	mu       sync.RWMutex
}

// NewSurveyStore creates a new in-memory survey store.
func NewSurveyStore() *SurveyStore {
	return &SurveyStore{
		data:     make(map[int64]*flow.Survey),
		versions: make(map[int64]int),
	}
}

func copySurvey(s *flow.Survey) *flow.Survey {
	cp := *s
	cp.Questions = make([]flow.Question, len(s.Questions))
	copy(cp.Questions, s.Questions)
	for i := range cp.Questions {
		q := &cp.Questions[i]
		q.Options = append([]flow.Option(nil), q.Options...)
	}
	return &cp
}

// Survey retrieves the current definition.
func (s *SurveyStore) Survey(ctx context.Context, id int64) (*flow.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sv, ok := s.data[id]
	if !ok {
		return nil, flow.ErrSurveyNotFound
	}
	return copySurvey(sv), nil
}

// SaveSurvey stores the definition under a fresh version with the validated
// flag cleared.
func (s *SurveyStore) SaveSurvey(ctx context.Context, sv *flow.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions[sv.ID]++
	cp := copySurvey(sv)
	cp.Version = strconv.Itoa(s.versions[sv.ID])
	cp.Validated = false
	s.data[sv.ID] = cp
	return nil
}

// Activate records the validated flag for the given version. A version
// mismatch means the definition changed since validation ran; the flag is
// refused rather than applied to the wrong snapshot.
func (s *SurveyStore) Activate(ctx context.Context, id int64, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sv, ok := s.data[id]
	if !ok {
		return flow.ErrSurveyNotFound
	}
	if sv.Version != version {
		return &flow.StaleVersionError{Captured: version, Current: sv.Version}
	}
	sv.Validated = true
	return nil
}
