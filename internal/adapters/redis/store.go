package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/espalierhq/espalier/pkg/flow"
)

// Store implements ports.ResponseStore using Redis. Responses are stored as
// JSON under a prefixed key, with a ZSET index for listing and lazy expiry
// pruning.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for responses.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for responses.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "espalier:response:",
		ttl:    0, // no expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(responseID string) string {
	return s.prefix + responseID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the response to Redis.
func (s *Store) Save(ctx context.Context, responseID string, r *flow.Response) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	pipe := s.client.Pipeline()

	pipe.Set(ctx, s.key(responseID), data, s.ttl)

	// Index score = expiry timestamp; effectively infinite when no TTL is
	// set, so the lazy pruning in List removes nothing.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: responseID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load retrieves the response from Redis.
func (s *Store) Load(ctx context.Context, responseID string) (*flow.Response, error) {
	val, err := s.client.Get(ctx, s.key(responseID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, flow.ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var r flow.Response
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &r, nil
}

// Delete removes the response.
func (s *Store) Delete(ctx context.Context, responseID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(responseID))
	pipe.ZRem(ctx, s.indexKey(), responseID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns known response IDs, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired responses: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
