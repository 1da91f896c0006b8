// Package cache stores scored track lists so reruns over unchanged inputs can
// skip the sync model.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forPelevin/syncsieve/internal/ports"
	"github.com/forPelevin/syncsieve/internal/types"
)

// Store is a byte-oriented key/value store. Implementations must be safe for
// concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", errors.Join(types.ErrConfiguration, err))
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (c *RedisStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisStore) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisStore) Close() error {
	return c.client.Close()
}

// Tracks adapts a Store to the track cache port.
type Tracks struct {
	store Store
	ttl   time.Duration
}

func NewTracks(store Store, ttl time.Duration) *Tracks {
	return &Tracks{store: store, ttl: ttl}
}

func (t *Tracks) Get(ctx context.Context, key string) ([]types.TrackCandidate, bool, error) {
	b, found, err := t.store.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	var out []types.TrackCandidate
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached tracks: %w", err)
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func (t *Tracks) Put(ctx context.Context, key string, tracks []types.TrackCandidate) error {
	if len(tracks) == 0 {
		return nil
	}
	b, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("encode tracks: %w", err)
	}
	return t.store.Set(ctx, key, b, t.ttl)
}

// Nop never hits and discards writes.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]types.TrackCandidate, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, []types.TrackCandidate) error         { return nil }

// Open returns a Redis-backed track cache for redisURL, or Nop when the URL is
// empty. On success the returned close func is non-nil.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (ports.TrackCache, func() error, error) {
	if redisURL == "" {
		return Nop{}, func() error { return nil }, nil
	}
	rs, err := NewRedisStore(redisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewTracks(rs, ttl), rs.Close, nil
}

var (
	_ ports.TrackCache = (*Tracks)(nil)
	_ ports.TrackCache = Nop{}
	_ Store            = (*RedisStore)(nil)
)
