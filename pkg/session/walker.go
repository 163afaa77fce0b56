package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

// EventKind discriminates what the delivery channel should do next.
type EventKind string

const (
	// EventShowQuestion instructs the channel to render a question.
	EventShowQuestion EventKind = "show_question"
	// EventCompleted instructs the channel to notify the respondent and
	// seal the response.
	EventCompleted EventKind = "completed"
)

// Event is the instruction handed to the delivery channel after every
// accepted operation.
type Event struct {
	Kind     EventKind
	Response *flow.Response
	// Question is the question to render; nil when Kind is EventCompleted.
	Question *flow.Question
}

// Walker drives respondent walks: it loads definitions and response state
// through the ports, delegates every decision to the flow core, and persists
// the outcome.
type Walker struct {
	surveys   ports.SurveyStore
	responses *Manager
	logger    *slog.Logger
}

// Option configures the Walker.
type Option func(*Walker)

// WithLogger configures a logger for walk events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker over the given stores.
func NewWalker(surveys ports.SurveyStore, responses ports.ResponseStore, opts ...Option) *Walker {
	w := &Walker{
		surveys:   surveys,
		responses: NewManager(responses),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins a new response for the survey, pinned to the survey's
// current version, and returns the first question to render. It refuses
// surveys that never passed validation.
func (w *Walker) Start(ctx context.Context, surveyID int64, respondentID string) (*Event, error) {
	s, err := w.surveys.Survey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("loading survey %d: %w", surveyID, err)
	}

	r, err := flow.NewResponse(newResponseID(), respondentID, s)
	if err != nil {
		return nil, err
	}

	if err := w.responses.Save(ctx, r.ID, r); err != nil {
		return nil, fmt.Errorf("initializing response: %w", err)
	}

	w.logger.Info("response started",
		"survey_id", surveyID,
		"survey_version", s.Version,
		"response_id", r.ID,
	)

	first, _ := s.Question(r.CurrentQuestionID)
	return &Event{Kind: EventShowQuestion, Response: r, Question: first}, nil
}

// Answer feeds one raw answer into the response's state machine and
// persists the transition. Runtime-guard rejections (already answered,
// already complete, stale version) come back as errors with the response
// state untouched; the caller re-renders or restarts as it sees fit.
func (w *Walker) Answer(ctx context.Context, responseID string, ans flow.Answer) (*Event, error) {
	var event *Event

	err := w.responses.WithLock(ctx, responseID, func(ctx context.Context) error {
		r, err := w.responses.Store().Load(ctx, responseID)
		if err != nil {
			return err
		}

		s, err := w.surveys.Survey(ctx, r.SurveyID)
		if err != nil {
			return fmt.Errorf("loading survey %d: %w", r.SurveyID, err)
		}

		result, err := flow.SubmitAnswer(s, r, ans)
		if err != nil {
			if flow.IsRuntimeGuard(err) {
				w.logger.Debug("transition refused",
					"response_id", responseID,
					"err", err,
				)
			}
			return err
		}

		if err := w.responses.Store().Save(ctx, responseID, r); err != nil {
			return fmt.Errorf("persisting response: %w", err)
		}

		if result.Completed {
			w.logger.Info("response completed", "response_id", responseID)
			event = &Event{Kind: EventCompleted, Response: r}
			return nil
		}
		event = &Event{Kind: EventShowQuestion, Response: r, Question: result.Next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Response returns the current state of a response.
func (w *Walker) Response(ctx context.Context, responseID string) (*flow.Response, error) {
	return w.responses.Load(ctx, responseID)
}

// newResponseID produces a random 128-bit hex identifier.
func newResponseID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b[:])
}
