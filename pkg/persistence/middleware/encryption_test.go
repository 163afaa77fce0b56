package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func sampleResponse() *flow.Response {
	return &flow.Response{
		ID:                "resp-1",
		SurveyID:          7,
		RespondentID:      "alice",
		SurveyVersion:     "3",
		CurrentQuestionID: 2,
		Visited:           []int64{1},
		Answers: map[int64]flow.Answer{
			1: {Value: "my email is alice@example.com"},
		},
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewResponseStore()
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner)

	r := sampleResponse()
	require.NoError(t, store.Save(ctx, r.ID, r))

	loaded, err := store.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.RespondentID, loaded.RespondentID)
	assert.Equal(t, r.CurrentQuestionID, loaded.CurrentQuestionID)
	assert.Equal(t, r.Answers[1].Value, loaded.Answers[1].Value)
}

func TestEncryptionEnvelopeIsOpaque(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewResponseStore()
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner)

	r := sampleResponse()
	require.NoError(t, store.Save(ctx, r.ID, r))

	// Read past the middleware: the raw record must not leak the answer.
	raw, err := inner.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, raw.ID)
	assert.Equal(t, r.SurveyID, raw.SurveyID)
	assert.Empty(t, raw.RespondentID)
	for _, ans := range raw.Answers {
		assert.NotContains(t, ans.Value, "alice@example.com")
	}
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewResponseStore()
	oldKey, newKey := testKey(1), testKey(2)

	r := sampleResponse()
	oldStore := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: oldKey})(inner)
	require.NoError(t, oldStore.Save(ctx, r.ID, r))

	rotated := NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(inner)

	loaded, err := rotated.Load(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.RespondentID, loaded.RespondentID)

	// Without the fallback the old record is unreadable.
	noFallback := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: newKey})(inner)
	_, err = noFallback.Load(ctx, r.ID)
	assert.Error(t, err)
}

func TestEncryptionFailsSecureOnPlainRecord(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewResponseStore()

	r := sampleResponse()
	require.NoError(t, inner.Save(ctx, r.ID, r))

	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner)
	_, err := store.Load(ctx, r.ID)
	assert.Error(t, err)
}

func TestEncryptedStoreSatisfiesContract(t *testing.T) {
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(9)})(memory.NewResponseStore())
	ports.RunResponseStoreContract(t, store)
}

func TestEncryptionRejectsShortKey(t *testing.T) {
	assert.Panics(t, func() {
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: []byte("short")})
	})
}
