package dsl

import (
	"fmt"

	"github.com/espalierhq/espalier/pkg/flow"
)

// QuestionBuilder provides a fluent API for configuring a question.
//
// GoTo and End attach to the most recently added option, or to the
// question's default step when no option has been added yet.
type QuestionBuilder struct {
	question flow.Question
	builder  *Builder
}

// FreeText marks the question as free text input. This is the default.
func (q *QuestionBuilder) FreeText() *QuestionBuilder {
	return q.typed(flow.FreeText)
}

// SingleChoice marks the question as single choice; its options may branch.
func (q *QuestionBuilder) SingleChoice() *QuestionBuilder {
	return q.typed(flow.SingleChoice)
}

// MultiChoice marks the question as multiple choice.
func (q *QuestionBuilder) MultiChoice() *QuestionBuilder {
	return q.typed(flow.MultiChoice)
}

// Rating marks the question as a rating scale; its options may branch.
func (q *QuestionBuilder) Rating() *QuestionBuilder {
	return q.typed(flow.Rating)
}

// Number marks the question as numeric input.
func (q *QuestionBuilder) Number() *QuestionBuilder {
	return q.typed(flow.Number)
}

// Date marks the question as date input.
func (q *QuestionBuilder) Date() *QuestionBuilder {
	return q.typed(flow.Date)
}

// Location marks the question as location input.
func (q *QuestionBuilder) Location() *QuestionBuilder {
	return q.typed(flow.Location)
}

func (q *QuestionBuilder) typed(t flow.QuestionType) *QuestionBuilder {
	q.question.Type = t
	return q
}

// Option adds a selectable answer. Without a following GoTo or End the
// option falls through to the next question in order.
func (q *QuestionBuilder) Option(id int64, text string) *QuestionBuilder {
	q.question.Options = append(q.question.Options, flow.Option{
		ID:         id,
		Text:       text,
		OrderIndex: len(q.question.Options) + 1,
	})
	return q
}

// GoTo routes the last added option (or the question's default step) to the
// target question.
func (q *QuestionBuilder) GoTo(questionID int64) *QuestionBuilder {
	d, err := flow.ToQuestion(questionID)
	if err != nil {
		q.builder.addErr(fmt.Errorf("question %d: %w", q.question.ID, err))
		return q
	}
	return q.route(d)
}

// End routes the last added option (or the question's default step) to the
// end of the survey.
func (q *QuestionBuilder) End() *QuestionBuilder {
	return q.route(flow.End())
}

func (q *QuestionBuilder) route(d flow.Determinant) *QuestionBuilder {
	if n := len(q.question.Options); n > 0 {
		q.question.Options[n-1].Next = &d
		return q
	}
	q.question.DefaultNext = &d
	return q
}

// Meta attaches a per-type authoring setting, e.g. a rating scale.
func (q *QuestionBuilder) Meta(key, value string) *QuestionBuilder {
	if q.question.Metadata == nil {
		q.question.Metadata = make(map[string]string)
	}
	q.question.Metadata[key] = value
	return q
}
