// Package cache memoizes upstream-bound results with per-operation TTLs.
//
// Values are stored JSON-encoded so that every Store holds plain bytes.
// The cache never holds data that cannot be rebuilt from upstream: any
// store failure is logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL applies to operations without a configured TTL.
const DefaultTTL = 5 * time.Minute

// DefaultTTLs is the built-in per-operation table.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		OpProjects:   2 * time.Hour,
		OpProject:    time.Hour,
		OpCommits:    time.Hour,
		OpCommitDiff: 30 * time.Minute,
		OpStats:      80 * time.Minute,
		OpBranches:   30 * time.Minute,
	}
}

// Entry is a stored value and its absolute expiry.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Store is the persistence behind a Cache. Implementations must be safe for
// concurrent use. Stores do not check expiry; the Cache does.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Stats is a snapshot of hit and miss counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	store      Store
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
	group      singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTLs replaces the per-operation TTL table.
func WithTTLs(ttls map[string]time.Duration) Option {
	return func(c *Cache) {
		c.ttls = make(map[string]time.Duration, len(ttls))
		for op, d := range ttls {
			c.ttls[op] = d
		}
	}
}

// WithDefaultTTL sets the TTL for operations missing from the table.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for absorbed store failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New returns a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		ttls:       DefaultTTLs(),
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the time-to-live for op.
func (c *Cache) TTL(op string) time.Duration {
	if d, ok := c.ttls[op]; ok && d > 0 {
		return d
	}
	return c.defaultTTL
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Get returns the raw value under key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.ExpiresAt) {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Debug("cache expired entry delete failed", "key", key, "error", err)
		}
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key with the TTL of op.
func (c *Cache) Set(ctx context.Context, key, op string, value []byte) {
	e := Entry{Value: value, ExpiresAt: c.now().Add(c.TTL(op))}
	if err := c.store.Set(ctx, key, e); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Invalidate removes every entry whose key starts with prefix and returns
// how many were removed.
func (c *Cache) Invalidate(ctx context.Context, prefix string) (int, error) {
	if c == nil {
		return 0, nil
	}
	n, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("cache invalidated", "prefix", prefix, "entries", n)
	return n, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}

// Cacheable is implemented by values that can opt out of storage.
// CacheOrCompute returns a value whose Cacheable reports false without
// storing it.
type Cacheable interface {
	Cacheable() bool
}

// flight is what one shared compute hands to every caller waiting on it.
// abandoned marks a result cut short by the leading caller's cancellation.
type flight[T any] struct {
	val       T
	abandoned bool
}

// CacheOrCompute returns the cached value for key, or calls compute, stores
// its result and returns it. Errors from compute are returned and never
// cached. A nil Cache always computes. Concurrent misses on the same key
// share one compute call; a caller stops waiting when its own ctx is done,
// and a caller whose shared compute was abandoned by another caller's
// cancellation computes again under its own ctx.
func CacheOrCompute[T any](ctx context.Context, c *Cache, key Key, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	k := key.String()
	if raw, ok := c.Get(ctx, k); ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			c.hits.Add(1)
			return v, nil
		}
		c.logger.Warn("cache value undecodable", "key", k, "error", err)
	}
	c.misses.Add(1)

	for {
		ch := c.group.DoChan(k, func() (any, error) {
			v, err := compute(ctx)
			if ctx.Err() != nil {
				return flight[T]{abandoned: true}, ctx.Err()
			}
			if err != nil {
				return flight[T]{val: v}, err
			}
			if cv, ok := any(v).(Cacheable); ok && !cv.Cacheable() {
				c.logger.Debug("value not cacheable, skipping store", "key", k)
				return flight[T]{val: v}, nil
			}
			raw, merr := json.Marshal(v)
			if merr != nil {
				c.logger.Warn("cache value unencodable", "key", k, "error", merr)
				return flight[T]{val: v}, nil
			}
			c.Set(ctx, k, key.Op, raw)
			return flight[T]{val: v}, nil
		})

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case res := <-ch:
			f, _ := res.Val.(flight[T])
			if f.abandoned && ctx.Err() == nil {
				c.logger.Debug("shared compute abandoned, recomputing", "key", k)
				continue
			}
			return f.val, res.Err
		}
	}
}
