package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/flow"
)

// RunResponseStoreContract runs a suite of tests to verify that a
// ResponseStore implementation adheres to the defined interface contract.
func RunResponseStoreContract(t *testing.T, store ResponseStore) {
	ctx := context.Background()
	responseID := "contract-test-response-" + time.Now().Format("20060102150405")

	sample := func(id string) *flow.Response {
		return &flow.Response{
			ID:                id,
			SurveyID:          1,
			RespondentID:      "respondent-1",
			SurveyVersion:     "v1",
			CurrentQuestionID: 2,
			Visited:           []int64{1},
			Answers:           map[int64]flow.Answer{1: {Value: "hello"}},
			StartedAt:         time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		r := sample(responseID)
		require.NoError(t, store.Save(ctx, responseID, r), "Save should not return error")

		loaded, err := store.Load(ctx, responseID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, r.CurrentQuestionID, loaded.CurrentQuestionID)
		assert.Equal(t, r.SurveyVersion, loaded.SurveyVersion)
		assert.Equal(t, []int64{1}, loaded.Visited)
		assert.Equal(t, "hello", loaded.Answers[1].Value)
		assert.False(t, loaded.Complete)
	})

	t.Run("Load is isolated from later mutation", func(t *testing.T) {
		r := sample(responseID + "-iso")
		require.NoError(t, store.Save(ctx, r.ID, r))

		loaded, err := store.Load(ctx, r.ID)
		require.NoError(t, err)
		loaded.Visited = append(loaded.Visited, 99)
		loaded.Answers[99] = flow.Answer{Value: "mutated"}

		again, err := store.Load(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, again.Visited, "caller mutation must not leak into the store")
		assert.NotContains(t, again.Answers, int64(99))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+responseID)
		assert.ErrorIs(t, err, flow.ErrResponseNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, responseID, sample(responseID)))

		require.NoError(t, store.Delete(ctx, responseID), "Delete should not return error")

		_, err := store.Load(ctx, responseID)
		assert.ErrorIs(t, err, flow.ErrResponseNotFound, "Load after Delete should return ErrResponseNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := responseID + "-1"
		id2 := responseID + "-2"
		_ = store.Save(ctx, id1, sample(id1))
		_ = store.Save(ctx, id2, sample(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
