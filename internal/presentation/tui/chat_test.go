package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/session"
)

func chatSurvey(t *testing.T) (ports.SurveyStore, *flow.Survey) {
	t.Helper()

	s := flow.NewSurvey(1, "Feedback", "", []flow.Question{
		{ID: 1, Text: "How did you hear about us?", Type: flow.SingleChoice, OrderIndex: 1, Options: []flow.Option{
			{ID: 10, Text: "A friend", OrderIndex: 1},
			{ID: 11, Text: "Nowhere, skip the rest", OrderIndex: 2, Next: endPtr()},
		}},
		{ID: 2, Text: "Anything else?", Type: flow.FreeText, OrderIndex: 2},
	})

	store := memory.NewSurveyStore()
	require.NoError(t, store.SaveSurvey(context.Background(), s))

	stored, err := store.Survey(context.Background(), s.ID)
	require.NoError(t, err)
	require.NoError(t, flow.Activate(stored))
	require.NoError(t, store.Activate(context.Background(), stored.ID, stored.Version))

	current, err := store.Survey(context.Background(), s.ID)
	require.NoError(t, err)
	return store, current
}

func endPtr() *flow.Determinant {
	d := flow.End()
	return &d
}

func TestChatWalksToCompletion(t *testing.T) {
	surveys, _ := chatSurvey(t)
	walker := session.NewWalker(surveys, memory.NewResponseStore())

	in := strings.NewReader("1\nall good\n")
	var out bytes.Buffer
	chat := NewChat(walker,
		WithIO(in, &out),
		WithProfile(termenv.Ascii),
	)

	err := chat.Run(context.Background(), 1, "resp-1")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "How did you hear about us?")
	assert.Contains(t, out.String(), "1. A friend")
	assert.Contains(t, out.String(), "Anything else?")
	assert.Contains(t, out.String(), "Thanks")
}

func TestChatBranchEndsEarly(t *testing.T) {
	surveys, _ := chatSurvey(t)
	walker := session.NewWalker(surveys, memory.NewResponseStore())

	in := strings.NewReader("2\n")
	var out bytes.Buffer
	chat := NewChat(walker, WithIO(in, &out), WithProfile(termenv.Ascii))

	err := chat.Run(context.Background(), 1, "resp-2")
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "Anything else?")
	assert.Contains(t, out.String(), "Thanks")
}

func TestChatRepromptsOnBadChoice(t *testing.T) {
	surveys, _ := chatSurvey(t)
	walker := session.NewWalker(surveys, memory.NewResponseStore())

	in := strings.NewReader("nope\n9\n2\n")
	var out bytes.Buffer
	chat := NewChat(walker, WithIO(in, &out), WithProfile(termenv.Ascii))

	err := chat.Run(context.Background(), 1, "resp-3")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "pick a number between 1 and 2")
}
