package middleware

import (
	"context"
	"regexp"

	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

const mask = "***"

type redactionMiddleware struct {
	next     ports.ResponseStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks answer-value
// substrings matching the patterns before persisting. Free-text answers are
// where respondents volunteer emails and phone numbers; redaction at the
// store boundary keeps them out of shared infrastructure while the
// in-memory response the engine works on stays untouched.
//
// Redaction is destructive: loads return the masked values.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ResponseStore) ports.ResponseStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, responseID string, r *flow.Response) error {
	cloned := *r
	cloned.Answers = make(map[int64]flow.Answer, len(r.Answers))
	for qid, ans := range r.Answers {
		ans.Value = m.redact(ans.Value)
		cloned.Answers[qid] = ans
	}
	cloned.Visited = append([]int64(nil), r.Visited...)

	return m.next.Save(ctx, responseID, &cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, responseID string) (*flow.Response, error) {
	return m.next.Load(ctx, responseID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, responseID string) error {
	return m.next.Delete(ctx, responseID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) redact(value string) string {
	for _, p := range m.patterns {
		value = p.ReplaceAllString(value, mask)
	}
	return value
}
