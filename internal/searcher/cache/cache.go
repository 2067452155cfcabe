// Package cache memoises ranked result sets in Redis. Keys are derived from
// the index generation, the normalised query terms and the limit, so a
// rebuilt index never serves results computed against older tables.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/tokenizer"
	pkgredis "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "moviesearch:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// IsMiss reports whether a Store error means the key does not exist.
type IsMiss func(err error) bool

type QueryCache struct {
	store   Store
	ttl     time.Duration
	isMiss  IsMiss
	breaker *resilience.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over a Redis client.
func New(client *pkgredis.Client, ttl time.Duration) *QueryCache {
	return NewWithStore(client, ttl, pkgredis.IsNilError)
}

func NewWithStore(store Store, ttl time.Duration, isMiss IsMiss) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		isMiss:  isMiss,
		breaker: resilience.NewBreaker("query-cache", resilience.BreakerConfig{Failures: 5, Cooldown: 10 * time.Second}),
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, query string, limit int) ([]index.Result, bool) {
	key := BuildKey(generation, query, limit)
	if c.breaker.Allow() != nil {
		c.misses.Add(1)
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if c.isMiss(err) {
			c.breaker.Record(nil)
		} else {
			c.breaker.Record(err)
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.breaker.Record(nil)
	var results []index.Result
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, query string, limit int, results []index.Result) {
	key := BuildKey(generation, query, limit)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrBreakerOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or runs computeFn once per key even
// when many callers miss at the same time. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	limit int,
	computeFn func() ([]index.Result, error),
) ([]index.Result, bool, error) {
	if results, ok := c.Get(ctx, generation, query, limit); ok {
		return results, true, nil
	}
	key := BuildKey(generation, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, generation, query, limit, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]index.Result), false, nil
}

// Invalidate drops every cached result set.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey hashes the query's terms rather than its raw text, so queries that
// tokenize identically share an entry.
func BuildKey(generation uint64, query string, limit int) string {
	terms := strings.Join(tokenizer.Tokenize(query), " ")
	raw := fmt.Sprintf("%s|limit=%d", terms, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, generation, hash[:16])
}
