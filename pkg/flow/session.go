package flow

import (
	"time"
)

// Answer is the raw input of one respondent for the current question.
// OptionID carries the selected option for branching-capable questions and
// is ignored otherwise; Value holds the raw text/number/date payload.
type Answer struct {
	OptionID int64  `json:"option_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Response is the per-respondent walk state: one record per survey attempt.
// It is created pinned to the survey version it started against, mutated by
// SubmitAnswer on every answer, and never mutated again after completion.
type Response struct {
	ID           string `json:"id"`
	SurveyID     int64  `json:"survey_id"`
	RespondentID string `json:"respondent_id"`

	// SurveyVersion is the definition snapshot this response started
	// against; re-checked on every transition.
	SurveyVersion string `json:"survey_version"`

	CurrentQuestionID int64   `json:"current_question_id"`
	Visited           []int64 `json:"visited"`
	Complete          bool    `json:"complete"`

	// Answers snapshots the raw input per answered question. The state
	// machine records it but never reads it for flow decisions.
	Answers map[int64]Answer `json:"answers,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewResponse starts a fresh walk of the survey, positioned on its first
// question and pinned to its current version.
func NewResponse(id, respondentID string, s *Survey) (*Response, error) {
	if !s.Validated {
		return nil, ErrNotActivated
	}
	first := s.First()
	if first == nil {
		return nil, &QuestionNotFoundError{}
	}
	return &Response{
		ID:                id,
		SurveyID:          s.ID,
		RespondentID:      respondentID,
		SurveyVersion:     s.Version,
		CurrentQuestionID: first.ID,
		Answers:           make(map[int64]Answer),
		StartedAt:         time.Now().UTC(),
	}, nil
}

// HasVisited reports whether the question was already answered in this walk.
func (r *Response) HasVisited(questionID int64) bool {
	for _, id := range r.Visited {
		if id == questionID {
			return true
		}
	}
	return false
}

// Result is the outcome of one accepted transition: either the next
// question to render, or completion.
type Result struct {
	Completed bool
	// Next is the question to render; nil iff Completed. The response's
	// CurrentQuestionID already reflects this question's id by the time
	// the caller is told to render it.
	Next *Question
}

// SubmitAnswer consumes one answer and transitions the response.
//
// Guards run in order and reject without any state change:
//  1. ErrAlreadyComplete once the response finished;
//  2. ErrAlreadyAnswered when the current question was already visited —
//     an independent runtime line of defense beyond Validate's static
//     check, because the survey can be edited between activation and an
//     in-flight response;
//  3. *StaleVersionError when the response's captured version no longer
//     matches the survey definition supplied by the caller.
//
// On success the current question joins the visited set and the resolved
// determinant either completes the response or advances it.
func SubmitAnswer(s *Survey, r *Response, ans Answer) (Result, error) {
	if r.Complete {
		return Result{}, ErrAlreadyComplete
	}
	if r.HasVisited(r.CurrentQuestionID) {
		return Result{}, ErrAlreadyAnswered
	}
	if r.SurveyVersion != s.Version {
		return Result{}, &StaleVersionError{Captured: r.SurveyVersion, Current: s.Version}
	}

	q, ok := s.Question(r.CurrentQuestionID)
	if !ok {
		return Result{}, &QuestionNotFoundError{QuestionID: r.CurrentQuestionID}
	}

	det, err := Resolve(s, q, ans.OptionID)
	if err != nil {
		return Result{}, err
	}

	// Resolve the destination before mutating, so a missing target leaves
	// the response untouched.
	var next *Question
	if target, ok := det.Target(); ok {
		next, ok = s.Question(target)
		if !ok {
			return Result{}, &QuestionNotFoundError{QuestionID: target}
		}
	}

	r.Visited = append(r.Visited, q.ID)
	if r.Answers == nil {
		r.Answers = make(map[int64]Answer)
	}
	r.Answers[q.ID] = ans

	if det.IsEnd() {
		now := time.Now().UTC()
		r.Complete = true
		r.CompletedAt = &now
		return Result{Completed: true}, nil
	}

	r.CurrentQuestionID = next.ID
	return Result{Next: next}, nil
}
