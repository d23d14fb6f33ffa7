package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/lessonweave/pkg/domain"
)

const (
	defaultPrefix = "lessonweave:progress:"
	// farFuture scores index entries of documents that never expire (2100-01-01).
	farFuture = 4102444800
)

// Store implements ports.ProgressStore using Redis.
// Each profile is one JSON value; a sorted set indexes profiles by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration of progress documents. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, shared with the Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(profileID string) string {
	return s.prefix + profileID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the document and its index entry in one pipeline.
func (s *Store) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(profileID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: profileID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the document of a profile.
func (s *Store) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	val, err := s.client.Get(ctx, s.key(profileID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var progress domain.Progress
	if err := json.Unmarshal(val, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &progress, nil
}

// Delete removes the document and its index entry.
func (s *Store) Delete(ctx context.Context, profileID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(profileID))
	pipe.ZRem(ctx, s.indexKey(), profileID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List prunes expired index entries, then returns the remaining profiles.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired profiles: %w", err)
	}

	profiles, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
