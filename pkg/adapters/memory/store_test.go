package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

func TestResponseStore_Contract(t *testing.T) {
	ports.RunResponseStoreContract(t, NewResponseStore())
}

func TestSurveyStore_SaveBumpsVersionAndClearsValidated(t *testing.T) {
	ctx := context.Background()
	store := NewSurveyStore()

	s := flow.NewSurvey(1, "pulse", "", []flow.Question{
		{ID: 1, OrderIndex: 1, Type: flow.FreeText},
	})
	require.NoError(t, store.SaveSurvey(ctx, s))

	loaded, err := store.Survey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.Version)
	assert.False(t, loaded.Validated)

	require.NoError(t, store.SaveSurvey(ctx, loaded))
	loaded, err = store.Survey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2", loaded.Version)
}

func TestSurveyStore_ActivateRefusesStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewSurveyStore()

	s := flow.NewSurvey(1, "pulse", "", []flow.Question{
		{ID: 1, OrderIndex: 1, Type: flow.FreeText},
	})
	require.NoError(t, store.SaveSurvey(ctx, s)) // version 1
	require.NoError(t, store.SaveSurvey(ctx, s)) // version 2

	err := store.Activate(ctx, 1, "1")
	var stale *flow.StaleVersionError
	require.ErrorAs(t, err, &stale)

	require.NoError(t, store.Activate(ctx, 1, "2"))
	loaded, err := store.Survey(ctx, 1)
	require.NoError(t, err)
	assert.True(t, loaded.Validated)
}

func TestSurveyStore_UnknownSurvey(t *testing.T) {
	ctx := context.Background()
	store := NewSurveyStore()

	_, err := store.Survey(ctx, 42)
	assert.ErrorIs(t, err, flow.ErrSurveyNotFound)
	assert.ErrorIs(t, store.Activate(ctx, 42, "1"), flow.ErrSurveyNotFound)
}
