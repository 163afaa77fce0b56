// Package http exposes the activation and delivery paths as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/espalierhq/espalier/internal/loader"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/metrics"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/session"
)

// Server wires the stores and the walker into HTTP handlers.
type Server struct {
	surveys ports.SurveyStore
	walker  *session.Walker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics attaches a metric set and exposes it on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewHandler builds the router over the given stores.
func NewHandler(surveys ports.SurveyStore, responses ports.ResponseStore, opts ...Option) http.Handler {
	s := &Server{
		surveys: surveys,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.walker = session.NewWalker(surveys, responses, session.WithLogger(s.logger))

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/surveys", func(r chi.Router) {
		r.Post("/", s.createSurvey)
		r.Get("/{surveyID}", s.getSurvey)
		r.Post("/{surveyID}/activate", s.activateSurvey)
		r.Post("/{surveyID}/responses", s.startResponse)
	})
	r.Route("/responses", func(r chi.Router) {
		r.Get("/{responseID}", s.getResponse)
		r.Post("/{responseID}/answers", s.submitAnswer)
	})

	return r
}

// createSurvey accepts a YAML survey definition and stores it as a new,
// unvalidated version.
func (s *Server) createSurvey(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	survey, err := loader.FromBytes(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.surveys.SaveSurvey(r.Context(), survey); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	stored, err := s.surveys.Survey(r.Context(), survey.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      stored.ID,
		"version": stored.Version,
	})
}

func (s *Server) getSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := s.surveyID(w, r)
	if !ok {
		return
	}

	survey, err := s.surveys.Survey(r.Context(), id)
	if err != nil {
		s.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// activateSurvey runs the structural validator and persists the validated
// flag on success. Structural findings come back as 422 with the full
// report, so the authoring client can pinpoint every mistake at once.
func (s *Server) activateSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := s.surveyID(w, r)
	if !ok {
		return
	}

	survey, err := s.surveys.Survey(r.Context(), id)
	if err != nil {
		s.mapError(w, err)
		return
	}

	if err := flow.Activate(survey); err != nil {
		s.observeActivation(err)
		s.mapError(w, err)
		return
	}

	if err := s.surveys.Activate(r.Context(), id, survey.Version); err != nil {
		s.mapError(w, err)
		return
	}

	s.observeActivation(nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"version":   survey.Version,
		"validated": true,
	})
}

type startRequest struct {
	RespondentID string `json:"respondent_id"`
}

func (s *Server) startResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := s.surveyID(w, r)
	if !ok {
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	event, err := s.walker.Start(r.Context(), id, req.RespondentID)
	if err != nil {
		s.mapError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ResponsesStarted.Inc()
	}
	writeJSON(w, http.StatusCreated, eventBody(event))
}

func (s *Server) getResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := s.walker.Response(r.Context(), chi.URLParam(r, "responseID"))
	if err != nil {
		s.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var ans flow.Answer
	if err := json.NewDecoder(r.Body).Decode(&ans); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	event, err := s.walker.Answer(r.Context(), chi.URLParam(r, "responseID"), ans)
	if err != nil {
		s.observeAnswer("", err)
		s.mapError(w, err)
		return
	}

	s.observeAnswer(string(event.Kind), nil)
	writeJSON(w, http.StatusOK, eventBody(event))
}

func (s *Server) surveyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "surveyID"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("survey id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// eventBody is the wire form of a walker event: the render instruction for
// the chat channel plus the response snapshot it should persist its cursor
// against.
func eventBody(event *session.Event) map[string]any {
	body := map[string]any{
		"event":       event.Kind,
		"response_id": event.Response.ID,
		"complete":    event.Response.Complete,
	}
	if event.Question != nil {
		body["question"] = event.Question
	}
	return body
}

// mapError translates the flow error taxonomy onto status codes: runtime
// guards are conflicts the client can recover from, structural findings are
// unprocessable definitions, store misses are 404s.
func (s *Server) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrSurveyNotFound), errors.Is(err, flow.ErrResponseNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case flow.IsRuntimeGuard(err):
		s.writeError(w, http.StatusConflict, err)
	case flow.IsStructural(err):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) observeActivation(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Activations.WithLabelValues(activationOutcome(err)).Inc()
}

func activationOutcome(err error) string {
	var (
		cycle    *flow.CycleError
		dangling *flow.DanglingReferenceError
		noEnd    *flow.NoEndpointError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &cycle):
		return "cycle"
	case errors.As(err, &dangling):
		return "dangling_reference"
	case errors.As(err, &noEnd):
		return "no_endpoint"
	default:
		return "invalid"
	}
}

func (s *Server) observeAnswer(kind string, err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil && kind == string(session.EventCompleted):
		s.metrics.Answers.WithLabelValues("completed").Inc()
	case err == nil:
		s.metrics.Answers.WithLabelValues("advanced").Inc()
	case flow.IsRuntimeGuard(err):
		s.metrics.Answers.WithLabelValues("refused").Inc()
	default:
		s.metrics.Answers.WithLabelValues("error").Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
