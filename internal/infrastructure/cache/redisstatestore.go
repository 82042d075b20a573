package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/closeio/authalligator/sdk/authalligator"
)

// ErrStateNotFound is returned by Consume for unknown, expired or already
// used states.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// StateInfo is what the consent redirect remembers until the provider calls back.
type StateInfo struct {
	Provider    authalligator.ProviderType `json:"provider"`
	RedirectURI string                     `json:"redirect_uri"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// RedisStateStore keeps pending OAuth states in Redis.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStateStore creates a store whose keys are prefix+state and expire after ttl.
func NewRedisStateStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Set stores info under state until the TTL elapses.
func (s *RedisStateStore) Set(ctx context.Context, state string, info StateInfo) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal state info: %w", err)
	}

	if err := s.client.Set(ctx, s.buildKey(state), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state in redis: %w", err)
	}
	return nil
}

// Consume returns the info stored under state and removes it, so a state
// can be redeemed once.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*StateInfo, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}

	data, err := s.client.GetDel(ctx, s.buildKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to retrieve state from redis: %w", err)
	}

	var info StateInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state info: %w", err)
	}
	return &info, nil
}

func (s *RedisStateStore) buildKey(state string) string {
	return s.prefix + state
}
