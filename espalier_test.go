package espalier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/session"
)

func endStep() *flow.Determinant {
	d := flow.End()
	return &d
}

func toStep(id int64) *flow.Determinant {
	d := flow.MustToQuestion(id)
	return &d
}

func demoSurvey() *flow.Survey {
	return flow.NewSurvey(7, "Visit feedback", "", []flow.Question{
		{ID: 1, Text: "Did you enjoy your visit?", Type: flow.SingleChoice, OrderIndex: 1, Options: []flow.Option{
			{ID: 10, Text: "Yes", OrderIndex: 1, Next: toStep(3)},
			{ID: 11, Text: "No", OrderIndex: 2},
		}},
		{ID: 2, Text: "What went wrong?", Type: flow.FreeText, OrderIndex: 2},
		{ID: 3, Text: "Anything to add?", Type: flow.FreeText, OrderIndex: 3, DefaultNext: endStep()},
	})
}

func TestEngineEndToEnd(t *testing.T) {
	ctx := context.Background()
	eng := espalier.New()

	s, err := eng.Load(ctx, demoSurvey())
	require.NoError(t, err)
	assert.True(t, s.Validated)

	walker := eng.Walker()
	event, err := walker.Start(ctx, s.ID, "respondent-1")
	require.NoError(t, err)
	require.Equal(t, session.EventShowQuestion, event.Kind)
	assert.Equal(t, int64(1), event.Question.ID)

	// "Yes" branches straight to question 3, skipping question 2.
	event, err = walker.Answer(ctx, event.Response.ID, flow.Answer{OptionID: 10, Value: "Yes"})
	require.NoError(t, err)
	require.Equal(t, session.EventShowQuestion, event.Kind)
	assert.Equal(t, int64(3), event.Question.ID)

	event, err = walker.Answer(ctx, event.Response.ID, flow.Answer{Value: "all good"})
	require.NoError(t, err)
	assert.Equal(t, session.EventCompleted, event.Kind)
	assert.True(t, event.Response.Complete)

	// The sealed response refuses further answers.
	_, err = walker.Answer(ctx, event.Response.ID, flow.Answer{Value: "late"})
	assert.ErrorIs(t, err, flow.ErrAlreadyComplete)
}

func TestEngineRefusesBrokenSurvey(t *testing.T) {
	ctx := context.Background()
	eng := espalier.New()

	s := demoSurvey()
	s.Questions[2].DefaultNext = toStep(1) // closes a loop through the graph

	_, err := eng.Load(ctx, s)
	var verr *flow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Findings)

	// Nothing got activated, so walking is refused.
	_, err = eng.Walker().Start(ctx, s.ID, "respondent-1")
	assert.Error(t, err)
}
