package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activated(t *testing.T, s *Survey) *Survey {
	t.Helper()
	require.NoError(t, Activate(s))
	return s
}

func start(t *testing.T, s *Survey) *Response {
	t.Helper()
	r, err := NewResponse("resp-1", "respondent-1", s)
	require.NoError(t, err)
	return r
}

func TestNewResponse_RefusesUnvalidatedSurveys(t *testing.T) {
	_, err := NewResponse("resp-1", "respondent-1", linear(2))
	assert.ErrorIs(t, err, ErrNotActivated)
	assert.True(t, IsRuntimeGuard(err))
}

func TestNewResponse_PinsVersionAndFirstQuestion(t *testing.T) {
	s := activated(t, linear(3))
	r := start(t, s)

	assert.Equal(t, s.Version, r.SurveyVersion)
	assert.Equal(t, int64(1), r.CurrentQuestionID)
	assert.False(t, r.Complete)
	assert.Empty(t, r.Visited)
}

func TestSubmitAnswer_LinearWalk(t *testing.T) {
	// Q1 -> Q2 -> Q3 -> End: answering in order yields the next question
	// twice, then completion.
	s := activated(t, linear(3))
	r := start(t, s)

	res, err := SubmitAnswer(s, r, Answer{Value: "one"})
	require.NoError(t, err)
	require.NotNil(t, res.Next)
	assert.Equal(t, int64(2), res.Next.ID)
	assert.Equal(t, res.Next.ID, r.CurrentQuestionID, "stored current must match the returned question")

	res, err = SubmitAnswer(s, r, Answer{Value: "two"})
	require.NoError(t, err)
	require.NotNil(t, res.Next)
	assert.Equal(t, int64(3), res.Next.ID)

	res, err = SubmitAnswer(s, r, Answer{Value: "three"})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Next)
	assert.True(t, r.Complete)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, []int64{1, 2, 3}, r.Visited)
}

func TestSubmitAnswer_BranchingShortcutsToEnd(t *testing.T) {
	// Q1 option B ends the survey directly, skipping Q2 and Q3.
	s := activated(t, branchingSurvey())
	r := start(t, s)

	res, err := SubmitAnswer(s, r, Answer{OptionID: 11})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, r.Complete)
	assert.Equal(t, []int64{1}, r.Visited)
}

func TestSubmitAnswer_BranchingSkipsAQuestion(t *testing.T) {
	s := activated(t, branchingSurvey())
	r := start(t, s)

	res, err := SubmitAnswer(s, r, Answer{OptionID: 10})
	require.NoError(t, err)
	require.NotNil(t, res.Next)
	assert.Equal(t, int64(3), res.Next.ID, "option A skips Q2")
}

func TestSubmitAnswer_CompletionIsIdempotent(t *testing.T) {
	s := activated(t, linear(1))
	r := start(t, s)

	res, err := SubmitAnswer(s, r, Answer{Value: "only"})
	require.NoError(t, err)
	require.True(t, res.Completed)

	before := *r
	_, err = SubmitAnswer(s, r, Answer{Value: "again"})
	assert.ErrorIs(t, err, ErrAlreadyComplete)
	assert.True(t, IsRuntimeGuard(err))
	assert.Equal(t, before.CurrentQuestionID, r.CurrentQuestionID)
	assert.Equal(t, before.Visited, r.Visited)
}

func TestSubmitAnswer_DoubleSubmitIsRejectedWithoutMutation(t *testing.T) {
	// Simulate a client double-submit: the current question is forced back
	// onto an already-visited id, as happens when a stale write wins.
	s := activated(t, linear(3))
	r := start(t, s)

	_, err := SubmitAnswer(s, r, Answer{Value: "one"})
	require.NoError(t, err)

	r.CurrentQuestionID = 1 // stale client state
	before := append([]int64(nil), r.Visited...)

	_, err = SubmitAnswer(s, r, Answer{Value: "one again"})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.True(t, IsRuntimeGuard(err))
	assert.Equal(t, before, r.Visited, "visited set must be unchanged")
	assert.Equal(t, int64(1), r.CurrentQuestionID, "current question must be unchanged")
}

func TestSubmitAnswer_NoQuestionIsEverVisitedTwice(t *testing.T) {
	s := activated(t, branchingSurvey())
	r := start(t, s)

	answers := []Answer{{OptionID: 12}, {Value: "text"}, {Value: "5"}}
	for _, ans := range answers {
		_, err := SubmitAnswer(s, r, ans)
		require.NoError(t, err)
	}

	seen := make(map[int64]int)
	for _, id := range r.Visited {
		seen[id]++
		assert.Equal(t, 1, seen[id], "question %d appears twice in visited set", id)
	}
}

func TestSubmitAnswer_StaleVersionIsRefused(t *testing.T) {
	s := activated(t, linear(2))
	r := start(t, s)

	// The definition changes underneath the in-flight response.
	s.Version = "v2"

	_, err := SubmitAnswer(s, r, Answer{Value: "hello"})
	var stale *StaleVersionError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, "v1", stale.Captured)
	assert.Equal(t, "v2", stale.Current)
	assert.True(t, IsRuntimeGuard(err))
	assert.Empty(t, r.Visited, "refused transition must not mutate the response")
}

func TestSubmitAnswer_UnknownCurrentQuestionAbortsWithoutMutation(t *testing.T) {
	s := activated(t, linear(2))
	r := start(t, s)
	r.CurrentQuestionID = 404

	_, err := SubmitAnswer(s, r, Answer{Value: "?"})
	var notFound *QuestionNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, int64(404), notFound.QuestionID)
	assert.False(t, IsRuntimeGuard(err))
	assert.Empty(t, r.Visited)
}

func TestSubmitAnswer_ForeignOptionLeavesStateUntouched(t *testing.T) {
	s := activated(t, branchingSurvey())
	r := start(t, s)

	_, err := SubmitAnswer(s, r, Answer{OptionID: 999})
	var notOwned *OptionNotOwnedError
	require.True(t, errors.As(err, &notOwned))
	assert.Empty(t, r.Visited)
	assert.Equal(t, int64(1), r.CurrentQuestionID)
}

func TestSubmitAnswer_RecordsRawAnswers(t *testing.T) {
	s := activated(t, linear(2))
	r := start(t, s)

	_, err := SubmitAnswer(s, r, Answer{Value: "first"})
	require.NoError(t, err)
	assert.Equal(t, "first", r.Answers[1].Value)
}
