package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/ports"
)

// envelopeKey is the answers-map slot holding the ciphertext. Question ids
// are always positive, so the slot can never collide with a real answer.
const envelopeKey int64 = 0

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.ResponseStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores responses as
// AES-GCM envelopes. The stored record keeps the response id, survey id and
// completion flag readable for monitoring; everything else, answers
// included, lives inside the ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.ResponseStore) ports.ResponseStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, responseID string, r *flow.Response) error {
	plainText, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("encrypting response: %w", err)
	}

	envelope := &flow.Response{
		ID:       r.ID,
		SurveyID: r.SurveyID,
		Complete: r.Complete,
		Answers: map[int64]flow.Answer{
			envelopeKey: {Value: base64.StdEncoding.EncodeToString(ciphertext)},
		},
	}
	return m.next.Save(ctx, responseID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, responseID string) (*flow.Response, error) {
	envelope, err := m.next.Load(ctx, responseID)
	if err != nil {
		return nil, err
	}

	// Fail secure: once encryption is configured, a record without an
	// envelope is treated as corrupt rather than returned as-is.
	blob, ok := envelope.Answers[envelopeKey]
	if !ok || blob.Value == "" {
		return nil, errors.New("response is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Value)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("decrypting response: %w", err)
	}

	var r flow.Response
	if err := json.Unmarshal(plainText, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling decrypted response: %w", err)
	}
	return &r, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, responseID string) error {
	return m.next.Delete(ctx, responseID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
