package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsablic/devpulse/internal/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(t *testing.T) (*cache.Cache, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return cache.New(cache.NewMemoryStore(100), cache.WithClock(clk.Now)), clk
}

func TestCacheOrComputeHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	key := cache.NewKey(cache.OpProjects)
	first, err := cache.CacheOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	second, err := cache.CacheOrCompute(ctx, c, key, compute)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, cache.Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestCacheOrComputeExpiry(t *testing.T) {
	c, clk := newCache(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	key := cache.NewKey(cache.OpCommitDiff, 1, "abc")
	v, _ := cache.CacheOrCompute(ctx, c, key, compute)
	assert.Equal(t, 1, v)

	clk.Advance(29 * time.Minute)
	v, _ = cache.CacheOrCompute(ctx, c, key, compute)
	assert.Equal(t, 1, v, "entry should still be fresh")

	clk.Advance(time.Minute)
	v, _ = cache.CacheOrCompute(ctx, c, key, compute)
	assert.Equal(t, 2, v, "entry should have expired at exactly its TTL")
	assert.Equal(t, 2, calls)
}

func TestCacheErrorsAreNotCached(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("boom")
	calls := 0

	key := cache.NewKey(cache.OpProject, 9)
	_, err := cache.CacheOrCompute(ctx, c, key, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := cache.CacheOrCompute(ctx, c, key, func(context.Context) (int, error) {
		calls++
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, 2, calls)
}

func TestNilCacheComputes(t *testing.T) {
	var c *cache.Cache
	v, err := cache.CacheOrCompute(context.Background(), c, cache.NewKey("x"), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	n, err := c.Invalidate(context.Background(), "x")
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestTTLCategories(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(0))
	assert.Equal(t, 2*time.Hour, c.TTL(cache.OpProjects))
	assert.Equal(t, time.Hour, c.TTL(cache.OpCommits))
	assert.Equal(t, 30*time.Minute, c.TTL(cache.OpBranches))
	assert.Equal(t, cache.DefaultTTL, c.TTL("something_else"))

	custom := cache.New(cache.NewMemoryStore(0),
		cache.WithTTLs(map[string]time.Duration{cache.OpStats: time.Second}),
		cache.WithDefaultTTL(time.Minute))
	assert.Equal(t, time.Second, custom.TTL(cache.OpStats))
	assert.Equal(t, time.Minute, custom.TTL(cache.OpProjects))
}

func TestInvalidate(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	compute := func(context.Context) (int, error) { return 1, nil }

	for _, k := range []cache.Key{
		cache.NewKey(cache.OpStats, 42, "a", "b"),
		cache.NewKey(cache.OpStats, 42, "c", "d"),
		cache.NewKey(cache.OpStats, 420, "a", "b"),
		cache.NewKey(cache.OpCommits, 42),
	} {
		_, err := cache.CacheOrCompute(ctx, c, k, compute)
		require.NoError(t, err)
	}

	n, err := c.Invalidate(ctx, cache.NewKey(cache.OpStats, 42).Prefix())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := c.Get(ctx, cache.NewKey(cache.OpStats, 420, "a", "b").String())
	assert.True(t, ok, "project 420 must survive invalidation of 42")
	_, ok = c.Get(ctx, cache.NewKey(cache.OpCommits, 42).String())
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, cache.NewKey(cache.OpCommits, 42).String()))
	_, ok = c.Get(ctx, cache.NewKey(cache.OpCommits, 42).String())
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("down")
}
func (failingStore) Set(context.Context, string, cache.Entry) error { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error           { return errors.New("down") }
func (failingStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, errors.New("down")
}
func (failingStore) Close() error { return nil }

func TestStoreFailureDegradesToCompute(t *testing.T) {
	c := cache.New(failingStore{})
	calls := 0
	for range 3 {
		v, err := cache.CacheOrCompute(context.Background(), c, cache.NewKey(cache.OpProjects), func(context.Context) (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 3, calls)
}

func TestConcurrentMissesShareCompute(t *testing.T) {
	c, _ := newCache(t)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	started := make(chan struct{}, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			v, err := cache.CacheOrCompute(context.Background(), c, cache.NewKey(cache.OpStats, 1), compute)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}
	for range 8 {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCancelledCallerDoesNotLeakIntoWaiters(t *testing.T) {
	c, _ := newCache(t)
	key := cache.NewKey(cache.OpCommits, 7)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	defer cancelLeader()
	leaderStarted := make(chan struct{})
	leaderErr := make(chan error, 1)
	go func() {
		_, err := cache.CacheOrCompute(leaderCtx, c, key, func(ctx context.Context) ([]string, error) {
			close(leaderStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		leaderErr <- err
	}()
	<-leaderStarted

	type result struct {
		v   []string
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := cache.CacheOrCompute(context.Background(), c, key, func(context.Context) ([]string, error) {
			return []string{"a", "b", "c"}, nil
		})
		follower <- result{v, err}
	}()

	// let the follower join the leader's flight before cancelling it
	time.Sleep(50 * time.Millisecond)
	cancelLeader()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, []string{"a", "b", "c"}, got.v)

	cached, err := cache.CacheOrCompute(context.Background(), c, key, func(context.Context) ([]string, error) {
		return nil, errors.New("should be served from cache")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cached)
}

func TestWaiterStopsOnItsOwnCancel(t *testing.T) {
	c, _ := newCache(t)
	key := cache.NewKey(cache.OpStats, 9)
	release := make(chan struct{})
	defer close(release)

	leaderStarted := make(chan struct{})
	go func() {
		cache.CacheOrCompute(context.Background(), c, key, func(context.Context) (int, error) {
			close(leaderStarted)
			<-release
			return 1, nil
		})
	}()
	<-leaderStarted

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := cache.CacheOrCompute(ctx, c, key, func(context.Context) (int, error) {
		<-release
		return 2, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
