package cache_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/syncsieve/internal/cache"
	"github.com/forPelevin/syncsieve/internal/types"
)

type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: map[string][]byte{}} }

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func TestTracks_Roundtrip(t *testing.T) {
	ctx := context.Background()
	tc := cache.NewTracks(newMemStore(), time.Hour)

	_, found, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	in := []types.TrackCandidate{{Track: 0, Offset: -1, Confidence: 7.183}, {Track: 1, Offset: 3, Confidence: 1.2}}
	require.NoError(t, tc.Put(ctx, "k", in))

	got, found, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, got)
}

func TestTracks_EmptyIsNotStored(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tc := cache.NewTracks(store, 0)

	require.NoError(t, tc.Put(ctx, "k", nil))
	assert.Empty(t, store.m)
}

func TestTracks_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Set(ctx, "k", []byte("{nope"), 0))

	_, found, err := cache.NewTracks(store, 0).Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var n cache.Nop
	require.NoError(t, n.Put(ctx, "k", []types.TrackCandidate{{Confidence: 1}}))
	_, found, err := n.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOpen_EmptyURLIsNop(t *testing.T) {
	tc, closeFn, err := cache.Open(context.Background(), "", time.Hour)
	require.NoError(t, err)
	assert.IsType(t, cache.Nop{}, tc)
	assert.NoError(t, closeFn())
}

func TestOpen_BadURL(t *testing.T) {
	_, _, err := cache.Open(context.Background(), "not a url", time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestTrackKey(t *testing.T) {
	mtime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := cache.KeyInput{Source: "/v/a.mp4", Size: 100, ModTime: mtime, Params: "min_track=50"}

	k1 := cache.TrackKey(base)
	assert.Equal(t, k1, cache.TrackKey(base))
	assert.Regexp(t, `^syncsieve:tracks:[0-9a-f-]{36}$`, k1)

	changed := base
	changed.Size = 101
	assert.NotEqual(t, k1, cache.TrackKey(changed))

	withChunk := base
	withChunk.Chunk = &types.Chunk{Index: 0, Start: 0, End: 30, Duration: 30}
	other := base
	other.Chunk = &types.Chunk{Index: 1, Start: 25, End: 55, Duration: 30}
	assert.NotEqual(t, cache.TrackKey(withChunk), cache.TrackKey(other))
	assert.NotEqual(t, k1, cache.TrackKey(withChunk))
}

func TestKeyInputFor(t *testing.T) {
	dir := t.TempDir()
	p := dir + "/a.mp4"
	require.NoError(t, os.WriteFile(p, []byte("1234"), 0o644))

	in, err := cache.KeyInputFor(p, nil, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(4), in.Size)
	assert.Equal(t, p, in.Source)

	_, err = cache.KeyInputFor(dir+"/missing.mp4", nil, "x")
	assert.Error(t, err)
}

// TestRedisStore runs against a live server when SYNCSIEVE_TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("SYNCSIEVE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SYNCSIEVE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rs, err := cache.NewRedisStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	require.NoError(t, rs.Ping(ctx))

	key := "syncsieve:test:" + t.Name()
	t.Cleanup(func() { _ = rs.Delete(ctx, key) })

	_, found, err := rs.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	tc := cache.NewTracks(rs, 10*time.Second)
	in := []types.TrackCandidate{{Track: 2, Offset: 1, Confidence: 5.5}}
	require.NoError(t, tc.Put(ctx, key, in))
	got, found, err := tc.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, got)
}
