package flow

import (
	"fmt"
	"sort"
)

// QuestionType is the closed set of supported question variants.
type QuestionType string

const (
	FreeText     QuestionType = "free_text"
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	Rating       QuestionType = "rating"
	Location     QuestionType = "location"
	Number       QuestionType = "number"
	Date         QuestionType = "date"
)

// BranchingCapable reports whether individual answer options of this type
// can each specify a different next step. This is the single place that
// assigns the property; adding a question type means updating this switch
// and nothing else.
func (t QuestionType) BranchingCapable() bool {
	switch t {
	case SingleChoice, Rating:
		return true
	default:
		return false
	}
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case FreeText, SingleChoice, MultiChoice, Rating, Location, Number, Date:
		return true
	default:
		return false
	}
}

// Option is one selectable answer of a branching-capable question. Next is
// nil when the author left the step unset, which means sequential fallback.
type Option struct {
	ID         int64        `json:"id"`
	Text       string       `json:"text"`
	OrderIndex int          `json:"order_index"`
	Next       *Determinant `json:"next,omitempty"`
}

// Question is one node of the survey graph.
//
// DefaultNext applies only to non-branching types and is nil when unset
// (sequential fallback). Options are populated only for choice/rating types.
type Question struct {
	ID         int64        `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	OrderIndex int          `json:"order_index"`

	DefaultNext *Determinant `json:"default_next,omitempty"`
	Options     []Option     `json:"options,omitempty"`

	// Metadata carries per-type authoring settings (e.g. a rating scale)
	// that the flow core itself never interprets.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Option returns the option with the given id, if this question owns it.
func (q *Question) Option(id int64) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// Survey is an ordered collection of questions plus the activation state.
// Version is the opaque snapshot tag of this definition; every Response
// created from the survey captures it.
type Survey struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Version   string     `json:"version"`
	Validated bool       `json:"validated"`
	Questions []Question `json:"questions"`
}

// NewSurvey assembles a survey and normalizes question and option order.
func NewSurvey(id int64, title, version string, questions []Question) *Survey {
	s := &Survey{ID: id, Title: title, Version: version, Questions: questions}
	s.sort()
	return s
}

func (s *Survey) sort() {
	sort.SliceStable(s.Questions, func(i, j int) bool {
		return s.Questions[i].OrderIndex < s.Questions[j].OrderIndex
	})
	for i := range s.Questions {
		opts := s.Questions[i].Options
		sort.SliceStable(opts, func(a, b int) bool {
			return opts[a].OrderIndex < opts[b].OrderIndex
		})
	}
}

// Question returns the question with the given id.
func (s *Survey) Question(id int64) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// First returns the survey's designated first question by order, or nil for
// an empty survey.
func (s *Survey) First() *Question {
	if len(s.Questions) == 0 {
		return nil
	}
	return &s.Questions[0]
}

// after returns the question following q by order index, or nil when q is
// the last question.
func (s *Survey) after(q *Question) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == q.ID && i+1 < len(s.Questions) {
			return &s.Questions[i+1]
		}
	}
	return nil
}

// fallback is the sequential-fallback rule, the only implicit edge in the
// graph: the next question by order, or EndSurvey when q is already last.
func (s *Survey) fallback(q *Question) Determinant {
	next := s.after(q)
	if next == nil {
		return End()
	}
	return Determinant{kind: GoToQuestion, target: next.ID}
}

// CheckShape verifies the non-graph invariants of the model: known question
// types, positive ids, options only on branching types. Graph-level
// problems (cycles, dangling targets, termination) are Validate's job.
func (s *Survey) CheckShape() error {
	for i := range s.Questions {
		q := &s.Questions[i]
		if q.ID <= 0 {
			return fmt.Errorf("question at order %d has non-positive id %d", q.OrderIndex, q.ID)
		}
		if !q.Type.Valid() {
			return fmt.Errorf("question %d has unknown type %q", q.ID, q.Type)
		}
		choiceType := q.Type.BranchingCapable() || q.Type == MultiChoice
		if !choiceType && len(q.Options) > 0 {
			return fmt.Errorf("question %d of type %q cannot carry options", q.ID, q.Type)
		}
		for j := range q.Options {
			if q.Options[j].ID <= 0 {
				return fmt.Errorf("option at index %d of question %d has non-positive id %d", j, q.ID, q.Options[j].ID)
			}
			if !q.Type.BranchingCapable() && q.Options[j].Next != nil {
				return fmt.Errorf("option %d of non-branching question %d cannot carry a next step", q.Options[j].ID, q.ID)
			}
		}
	}
	return nil
}
