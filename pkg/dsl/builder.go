package dsl

import (
	"errors"
	"fmt"

	"github.com/espalierhq/espalier/pkg/flow"
)

// Builder manages the survey construction. Question and option order follow
// insertion order.
type Builder struct {
	id        int64
	title     string
	questions []*QuestionBuilder
	byID      map[int64]*QuestionBuilder
	errs      []error
}

// New creates a new survey builder.
func New(id int64, title string) *Builder {
	return &Builder{
		id:    id,
		title: title,
		byID:  make(map[int64]*QuestionBuilder),
	}
}

// Add creates a new question in the survey. Adding an existing id returns
// the existing builder.
func (b *Builder) Add(id int64, text string) *QuestionBuilder {
	if qb, ok := b.byID[id]; ok {
		return qb
	}
	qb := &QuestionBuilder{
		question: flow.Question{
			ID:         id,
			Text:       text,
			Type:       flow.FreeText,
			OrderIndex: len(b.questions) + 1,
		},
		builder: b,
	}
	b.questions = append(b.questions, qb)
	b.byID[id] = qb
	return qb
}

// Build compiles the questions into a survey and checks its shape. Graph
// validation (cycles, dangling references, termination) stays a separate
// step, same as for loaded surveys.
func (b *Builder) Build() (*flow.Survey, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	questions := make([]flow.Question, 0, len(b.questions))
	for _, qb := range b.questions {
		questions = append(questions, qb.question)
	}

	s := flow.NewSurvey(b.id, b.title, "", questions)
	if err := s.CheckShape(); err != nil {
		return nil, fmt.Errorf("building survey %d: %w", b.id, err)
	}
	return s, nil
}

func (b *Builder) addErr(err error) {
	b.errs = append(b.errs, err)
}
