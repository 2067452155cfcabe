// Package executor answers search requests against the live index and
// owns corpus reloads. It layers the optional query cache, Prometheus
// metrics and analytics events around the pure index.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

type SearchResult struct {
	Query      string          `json:"query"`
	Terms      []string        `json:"terms"`
	TotalDocs  int             `json:"total_docs"`
	Matched    int             `json:"matched"`
	Generation uint64          `json:"generation"`
	Results    []presenter.Hit `json:"results"`
}

type Executor struct {
	index      *index.Index
	source     loader.Source
	sourceName string
	cache      *cache.QueryCache
	collector  *analytics.Collector
	metrics    *metrics.Metrics
	reloads    singleflight.Group
	logger     *slog.Logger
}

type Option func(*Executor)

func WithCache(c *cache.QueryCache) Option {
	return func(e *Executor) { e.cache = c }
}

func WithCollector(c *analytics.Collector) Option {
	return func(e *Executor) { e.collector = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New wires an executor around an already built index. sourceName labels
// index events.
func New(idx *index.Index, source loader.Source, sourceName string, opts ...Option) *Executor {
	e := &Executor{
		index:      idx,
		source:     source,
		sourceName: sourceName,
		logger:     slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs query with at most limit results. The bool reports whether the
// results came from the cache.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, bool, error) {
	start := time.Now()
	view := e.index.View()
	stats := view.Stats()
	compute := func() ([]index.Result, error) {
		return view.Search(query, limit)
	}

	var (
		results  []index.Result
		cacheHit bool
		err      error
	)
	if e.cache != nil {
		results, cacheHit, err = e.cache.GetOrCompute(ctx, stats.Generation, query, limit, compute)
	} else {
		results, err = compute()
	}
	elapsed := time.Since(start)
	if err != nil {
		e.observeSearch("error", cacheHit, elapsed, 0)
		return nil, false, fmt.Errorf("searching %q: %w", query, err)
	}

	matched := 0
	for _, r := range results {
		if r.Score > 0 {
			matched++
		}
	}
	terms := tokenizer.Tokenize(query)
	resultType := "match"
	eventType := analytics.EventSearch
	if matched == 0 {
		resultType = "zero_score"
		eventType = analytics.EventZeroScore
	}
	e.observeSearch(resultType, cacheHit, elapsed, len(results))

	if e.collector != nil {
		e.collector.TrackSearch(analytics.SearchEvent{
			Type:       eventType,
			Query:      query,
			Terms:      terms,
			Limit:      limit,
			Returned:   len(results),
			Matched:    matched,
			LatencyUs:  elapsed.Microseconds(),
			CacheHit:   cacheHit,
			Generation: stats.Generation,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}
	logger.FromContext(ctx).Debug("search completed",
		"query", query,
		"returned", len(results),
		"matched", matched,
		"cache_hit", cacheHit,
		"latency", elapsed,
	)

	return &SearchResult{
		Query:      query,
		Terms:      terms,
		TotalDocs:  stats.Documents,
		Matched:    matched,
		Generation: stats.Generation,
		Results:    presenter.NewResponse(query, results).Results,
	}, cacheHit, nil
}

// Reload reads the corpus from the source and publishes a new index
// generation. Concurrent calls share one load.
func (e *Executor) Reload(ctx context.Context) (index.Stats, error) {
	v, err, shared := e.reloads.Do("reload", func() (interface{}, error) {
		start := time.Now()
		movies, err := e.source.Load(ctx)
		if err != nil {
			if e.metrics != nil {
				e.metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
			}
			return nil, fmt.Errorf("loading corpus from %s: %w", e.sourceName, err)
		}
		stats := e.index.Rebuild(loader.Documents(movies))
		if e.cache != nil {
			if err := e.cache.Invalidate(ctx); err != nil {
				e.logger.Warn("cache invalidation after reload failed", "error", err)
			}
		}
		e.RecordBuild(stats, time.Since(start))
		return stats, nil
	})
	if err != nil {
		return index.Stats{}, err
	}
	if shared {
		e.logger.Debug("reload coalesced with an in-flight reload")
	}
	return v.(index.Stats), nil
}

// RecordBuild publishes metrics and an analytics event for a completed build.
func (e *Executor) RecordBuild(stats index.Stats, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
		e.metrics.IndexBuildDuration.Observe(duration.Seconds())
		e.metrics.CorpusDocuments.Set(float64(stats.Documents))
		e.metrics.CorpusTerms.Set(float64(stats.Terms))
	}
	if e.collector != nil {
		e.collector.TrackIndex(analytics.IndexEvent{
			Type:       analytics.EventIndexBuild,
			Source:     e.sourceName,
			Documents:  stats.Documents,
			Terms:      stats.Terms,
			Generation: stats.Generation,
			DurationMs: duration.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
	e.logger.Info("index generation published",
		"source", e.sourceName,
		"documents", stats.Documents,
		"terms", stats.Terms,
		"generation", stats.Generation,
		"duration", duration,
	)
}

func (e *Executor) Stats() index.Stats {
	return e.index.Stats()
}

func (e *Executor) observeSearch(resultType string, cacheHit bool, elapsed time.Duration, returned int) {
	if e.metrics == nil {
		return
	}
	cacheStatus := "bypass"
	if e.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		if cacheHit {
			e.metrics.CacheHitsTotal.Inc()
		} else {
			e.metrics.CacheMissesTotal.Inc()
		}
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	e.metrics.SearchResultsCount.Observe(float64(returned))
}
