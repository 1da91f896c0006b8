package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllResultsCollected(t *testing.T) {
	t.Parallel()

	specs := []int{1, 2, 3, 4, 5, 6, 7}
	got := Run(context.Background(), specs, 3, func(_ context.Context, n int) int { return n * n }, nil)

	sort.Ints(got)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49}, got)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	var cur, peak atomic.Int32
	fn := func(_ context.Context, _ int) int {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		cur.Add(-1)
		return 0
	}
	Run(context.Background(), make([]int, 10), 2, fn, nil)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRun_CompletionOrder(t *testing.T) {
	t.Parallel()

	// the first spec is slowest, so it must be collected last
	specs := []time.Duration{150 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
	var progress []int
	got := Run(context.Background(), specs, 3, func(_ context.Context, d time.Duration) time.Duration {
		time.Sleep(d)
		return d
	}, func(_ time.Duration, done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})

	require.Len(t, got, 3)
	assert.Equal(t, 150*time.Millisecond, got[2])
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestRun_WorkersClamped(t *testing.T) {
	t.Parallel()

	got := Run(context.Background(), []string{"a", "b"}, 0, func(_ context.Context, s string) string { return s }, nil)
	assert.ElementsMatch(t, []string{"a", "b"}, got)

	assert.Nil(t, Run(context.Background(), nil, 4, func(_ context.Context, s string) string { return s }, nil))
}

func TestRun_CancelStopsDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	var started atomic.Int32
	got := Run(ctx, make([]int, 20), 1, func(_ context.Context, _ int) int {
		started.Add(1)
		once.Do(cancel)
		return 1
	}, nil)

	// the in-flight job finishes; at most one more can slip past the check
	assert.GreaterOrEqual(t, len(got), 1)
	assert.Less(t, len(got), 20)
	assert.Equal(t, int(started.Load()), len(got))
}

func TestRun_JobContextIsPassedThrough(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	got := Run(ctx, []int{1}, 1, func(ctx context.Context, _ int) string {
		s, _ := ctx.Value(key{}).(string)
		return s
	}, nil)
	assert.Equal(t, []string{"v"}, got)
}
