package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errMissing
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func isMissing(err error) bool { return errors.Is(err, errMissing) }

func sampleResults() []index.Result {
	return []index.Result{
		{Document: index.Document{ID: 0, Title: "Alpha", Body: "brave new world"}, Score: 0.07},
		{Document: index.Document{ID: 2, Title: "Gamma", Body: "old world order"}, Score: 0},
	}
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, BuildKey(1, "Brave  World!", 5), BuildKey(1, "brave world", 5))
	assert.NotEqual(t, BuildKey(1, "brave world", 5), BuildKey(2, "brave world", 5))
	assert.NotEqual(t, BuildKey(1, "brave world", 5), BuildKey(1, "brave world", 6))
	assert.NotEqual(t, BuildKey(1, "world", 5), BuildKey(1, "world world", 5))
	assert.Contains(t, BuildKey(3, "x", 1), keyPrefix+"g3:")
}

func TestGetOrComputeCachesResults(t *testing.T) {
	c := NewWithStore(newMemStore(), time.Minute, isMissing)
	ctx := context.Background()
	calls := 0
	compute := func() ([]index.Result, error) {
		calls++
		return sampleResults(), nil
	}

	got, hit, err := c.GetOrCompute(ctx, 1, "world", 5, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sampleResults(), got)

	got, hit, err = c.GetOrCompute(ctx, 1, "WORLD", 5, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResults(), got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// new generation misses
	_, hit, err = c.GetOrCompute(ctx, 2, "world", 5, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := NewWithStore(newMemStore(), time.Minute, isMissing)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), 1, "q", 5, func() ([]index.Result, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestStoreFailureFallsBackToCompute(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")
	c := NewWithStore(store, time.Minute, isMissing)

	got, hit, err := c.GetOrCompute(context.Background(), 1, "world", 5, func() ([]index.Result, error) {
		return sampleResults(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 2)
}

func TestGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	c := NewWithStore(newMemStore(), time.Minute, isMissing)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() ([]index.Result, error) {
		calls.Add(1)
		<-release
		return sampleResults(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), 1, "world", 5, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := NewWithStore(store, time.Minute, isMissing)
	ctx := context.Background()
	c.Set(ctx, 1, "a", 5, sampleResults())
	c.Set(ctx, 1, "b", 5, sampleResults())
	store.data["unrelated"] = []byte("keep")

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, 1, "a", 5)
	assert.False(t, ok)
	assert.Contains(t, store.data, "unrelated")
}

func TestFailingStoreIsBypassed(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("connection refused")
	c := NewWithStore(store, time.Minute, isMissing)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, ok := c.Get(ctx, 1, "world", 5)
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.BreakerOpen, c.breaker.State())

	// once open, a recovered store is not consulted until the cooldown ends
	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	c.Set(ctx, 1, "world", 5, sampleResults())
	assert.Empty(t, store.data)
	_, ok := c.Get(ctx, 1, "world", 5)
	assert.False(t, ok)
}
