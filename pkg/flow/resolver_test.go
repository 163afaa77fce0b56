package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchingSurvey() *Survey {
	return NewSurvey(1, "branch", "v1", []Question{
		{ID: 1, OrderIndex: 1, Type: SingleChoice, Options: []Option{
			{ID: 10, OrderIndex: 1, Text: "skip", Next: det(3)},
			{ID: 11, OrderIndex: 2, Text: "done", Next: endDet()},
			{ID: 12, OrderIndex: 3, Text: "continue"}, // sequential fallback
		}},
		{ID: 2, OrderIndex: 2, Type: FreeText, DefaultNext: det(3)},
		{ID: 3, OrderIndex: 3, Type: Number},
	})
}

func TestResolve_UsesTheSelectedOptionsDeterminant(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(1)

	d, err := Resolve(s, q, 10)
	require.NoError(t, err)
	target, ok := d.Target()
	require.True(t, ok)
	assert.Equal(t, int64(3), target)

	d, err = Resolve(s, q, 11)
	require.NoError(t, err)
	assert.True(t, d.IsEnd())
}

func TestResolve_OptionWithoutNextFallsBackSequentially(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(1)

	d, err := Resolve(s, q, 12)
	require.NoError(t, err)
	target, ok := d.Target()
	require.True(t, ok)
	assert.Equal(t, int64(2), target, "fallback is the next question by order")
}

func TestResolve_RejectsForeignOptionIDs(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(1)

	_, err := Resolve(s, q, 999)
	var notOwned *OptionNotOwnedError
	require.True(t, errors.As(err, &notOwned))
	assert.Equal(t, int64(1), notOwned.QuestionID)
	assert.Equal(t, int64(999), notOwned.OptionID)
	assert.True(t, IsStructural(err))
}

func TestResolve_NonBranchingUsesDefaultNext(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(2)

	// The option id is ignored for non-branching questions.
	d, err := Resolve(s, q, 999)
	require.NoError(t, err)
	target, ok := d.Target()
	require.True(t, ok)
	assert.Equal(t, int64(3), target)
}

func TestResolve_LastQuestionFallsBackToEnd(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(3)

	d, err := Resolve(s, q, 0)
	require.NoError(t, err)
	assert.True(t, d.IsEnd())
}

func TestResolve_IsDeterministic(t *testing.T) {
	s := branchingSurvey()
	q, _ := s.Question(1)

	first, err := Resolve(s, q, 10)
	require.NoError(t, err)
	second, err := Resolve(s, q, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
