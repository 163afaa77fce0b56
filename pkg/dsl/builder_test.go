package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/flow"
)

func TestBuilderConstructsBranchingSurvey(t *testing.T) {
	b := New(1, "Visit feedback")

	b.Add(1, "Did you enjoy your visit?").
		SingleChoice().
		Option(10, "Yes").GoTo(3).
		Option(11, "No")

	b.Add(2, "What went wrong?").FreeText()

	b.Add(3, "Anything to add?").FreeText().End()

	s, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, flow.Validate(s))

	q1, ok := s.Question(1)
	require.True(t, ok)
	require.Len(t, q1.Options, 2)

	require.NotNil(t, q1.Options[0].Next)
	target, ok := q1.Options[0].Next.Target()
	require.True(t, ok)
	assert.Equal(t, int64(3), target)

	assert.Nil(t, q1.Options[1].Next, "option without a route stays unset")

	q3, ok := s.Question(3)
	require.True(t, ok)
	require.NotNil(t, q3.DefaultNext)
	assert.True(t, q3.DefaultNext.IsEnd())
}

func TestBuilderOrdersByInsertion(t *testing.T) {
	b := New(2, "Ordered")
	b.Add(30, "third is first")
	b.Add(10, "second")
	b.Add(20, "last")

	s, err := b.Build()
	require.NoError(t, err)

	ids := make([]int64, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []int64{30, 10, 20}, ids)
	assert.Equal(t, int64(30), s.First().ID)
}

func TestBuilderAddIsIdempotent(t *testing.T) {
	b := New(3, "Dedup")
	first := b.Add(1, "hello").SingleChoice()
	again := b.Add(1, "ignored")

	assert.Same(t, first, again)

	s, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, s.Questions, 1)
	assert.Equal(t, "hello", s.Questions[0].Text)
}

func TestBuilderRejectsInvalidTarget(t *testing.T) {
	b := New(4, "Broken")
	b.Add(1, "q").SingleChoice().Option(10, "a").GoTo(0)

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderRejectsOptionsOnFreeText(t *testing.T) {
	b := New(5, "Shape")
	b.Add(1, "q").FreeText().Option(10, "a")

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuilderMetadata(t *testing.T) {
	b := New(6, "Meta")
	b.Add(1, "Rate us").Rating().Meta("scale", "5")

	s, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "5", s.Questions[0].Metadata["scale"])
}
