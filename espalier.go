package espalier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/espalierhq/espalier/internal/loader"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/session"
)

// Version is stamped by the release build; the default marks dev builds.
var Version = "0.0.0-dev"

// Engine is the high-level entry point for embedding espalier as a library.
// It bundles a survey store, a response store and the walker that drives
// respondents through activated surveys.
type Engine struct {
	surveys   ports.SurveyStore
	responses ports.ResponseStore
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSurveyStore injects a custom survey store, replacing the in-memory
// default.
func WithSurveyStore(s ports.SurveyStore) Option {
	return func(e *Engine) {
		e.surveys = s
	}
}

// WithResponseStore injects a custom response store, replacing the in-memory
// default.
func WithResponseStore(s ports.ResponseStore) Option {
	return func(e *Engine) {
		e.responses = s
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. Without options all state lives in memory, which
// suits tests and single-process embedding.
func New(opts ...Option) *Engine {
	e := &Engine{
		surveys:   memory.NewSurveyStore(),
		responses: memory.NewResponseStore(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadFile reads a YAML survey definition, stores it, validates it and
// activates the stored version in one step. The returned survey is the
// activated snapshot.
func (e *Engine) LoadFile(ctx context.Context, path string) (*flow.Survey, error) {
	s, err := loader.FromFile(path)
	if err != nil {
		return nil, err
	}
	return e.install(ctx, s)
}

// Load stores, validates and activates an already-assembled survey.
func (e *Engine) Load(ctx context.Context, s *flow.Survey) (*flow.Survey, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	return e.install(ctx, s)
}

func (e *Engine) install(ctx context.Context, s *flow.Survey) (*flow.Survey, error) {
	if err := e.surveys.SaveSurvey(ctx, s); err != nil {
		return nil, fmt.Errorf("storing survey %d: %w", s.ID, err)
	}
	stored, err := e.surveys.Survey(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if err := flow.Activate(stored); err != nil {
		return nil, err
	}
	if err := e.surveys.Activate(ctx, stored.ID, stored.Version); err != nil {
		return nil, fmt.Errorf("activating survey %d: %w", s.ID, err)
	}
	stored.Validated = true
	return stored, nil
}

// Walker returns a walker over the engine's stores for driving responses.
func (e *Engine) Walker() *session.Walker {
	return session.NewWalker(e.surveys, e.responses, session.WithLogger(e.logger))
}

// Surveys exposes the survey store, mainly for wiring delivery adapters.
func (e *Engine) Surveys() ports.SurveyStore {
	return e.surveys
}

// Responses exposes the response store.
func (e *Engine) Responses() ports.ResponseStore {
	return e.responses
}
