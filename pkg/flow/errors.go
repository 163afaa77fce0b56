package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Store-level sentinels, returned by pkg/ports implementations.
var (
	// ErrSurveyNotFound is returned when a survey id cannot be found in the store.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrResponseNotFound is returned when a response id cannot be found in the store.
	ErrResponseNotFound = errors.New("response not found")
)

// Runtime-guard sentinels: expected, non-fatal, recoverable by the caller.
// They leave the response untouched.
var (
	// ErrAlreadyComplete rejects transitions on a completed response.
	ErrAlreadyComplete = errors.New("response is already complete")
	// ErrAlreadyAnswered rejects a transition whose current question was
	// already visited (double-submit, or a runtime cycle that slipped past
	// a since-edited definition).
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotActivated rejects starting a response on a survey that never
	// passed validation.
	ErrNotActivated = errors.New("survey is not activated")
)

// StaleVersionError rejects a transition whose response was started against
// a survey definition that has since changed.
type StaleVersionError struct {
	Captured string // version pinned at response start
	Current  string // store's current version
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("stale survey version: response captured %q, survey is now %q", e.Captured, e.Current)
}

// CycleError reports a cycle in the question graph. Path is the ordered list
// of question ids along the cycle; its first and last entries are equal.
type CycleError struct {
	Path []int64
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "cycle detected: " + strings.Join(parts, " -> ")
}

// DanglingReferenceError reports an edge pointing at a question that does
// not exist in the survey.
type DanglingReferenceError struct {
	QuestionID int64 // question owning the bad edge
	OptionID   int64 // option owning it, 0 when the edge is the question default
	TargetID   int64 // the id that resolves to nothing
}

func (e *DanglingReferenceError) Error() string {
	if e.OptionID != 0 {
		return fmt.Sprintf("option %d of question %d references unknown question %d", e.OptionID, e.QuestionID, e.TargetID)
	}
	return fmt.Sprintf("question %d references unknown question %d", e.QuestionID, e.TargetID)
}

// NoEndpointError reports that no question reachable from the first question
// carries an EndSurvey edge, so no respondent walk can ever terminate.
type NoEndpointError struct {
	QuestionIDs []int64 // the reachable questions, none of which can terminate
}

func (e *NoEndpointError) Error() string {
	parts := make([]string, len(e.QuestionIDs))
	for i, id := range e.QuestionIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "no reachable endpoint: none of questions [" + strings.Join(parts, " ") + "] can end the survey"
}

// OptionNotOwnedError reports an answer referencing an option id that does
// not belong to the question being answered.
type OptionNotOwnedError struct {
	QuestionID int64
	OptionID   int64
}

func (e *OptionNotOwnedError) Error() string {
	return fmt.Sprintf("option %d is not owned by question %d", e.OptionID, e.QuestionID)
}

// QuestionNotFoundError reports a question id that resolves to nothing in
// the survey. Post-activation this is an invariant violation: the affected
// response must be aborted, others are unaffected.
type QuestionNotFoundError struct {
	QuestionID int64
}

func (e *QuestionNotFoundError) Error() string {
	return fmt.Sprintf("question %d not found in survey", e.QuestionID)
}

// ValidationError aggregates every structural finding of a validation run,
// so one activation attempt surfaces all authoring mistakes at once.
type ValidationError struct {
	Findings []error
}

func (e *ValidationError) Error() string {
	if len(e.Findings) == 1 {
		return e.Findings[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Findings))
	for i, f := range e.Findings {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, f.Error())
	}
	return b.String()
}

// Unwrap exposes the findings to errors.Is / errors.As.
func (e *ValidationError) Unwrap() []error { return e.Findings }

// IsStructural reports whether err belongs to the structural taxonomy:
// fatal to the operation in progress, blocks activation, pinpoints an
// authoring mistake.
func IsStructural(err error) bool {
	var (
		ve *ValidationError
		ce *CycleError
		de *DanglingReferenceError
		ne *NoEndpointError
		oe *OptionNotOwnedError
	)
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &de) ||
		errors.As(err, &ne) || errors.As(err, &oe)
}

// IsRuntimeGuard reports whether err belongs to the runtime-guard taxonomy:
// expected, non-fatal, and recoverable by re-rendering, ignoring the
// duplicate, or restarting.
func IsRuntimeGuard(err error) bool {
	var sv *StaleVersionError
	return errors.Is(err, ErrAlreadyComplete) || errors.Is(err, ErrAlreadyAnswered) ||
		errors.Is(err, ErrNotActivated) || errors.As(err, &sv)
}
