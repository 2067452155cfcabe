package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topQueryCount     = 10
)

type AggregatedStats struct {
	TotalSearches    int64        `json:"total_searches"`
	CacheHits        int64        `json:"cache_hits"`
	CacheMisses      int64        `json:"cache_misses"`
	ZeroScoreCount   int64        `json:"zero_score_count"`
	AvgLatencyUs     float64      `json:"avg_latency_us"`
	P50LatencyUs     int64        `json:"p50_latency_us"`
	P95LatencyUs     int64        `json:"p95_latency_us"`
	P99LatencyUs     int64        `json:"p99_latency_us"`
	TopQueries       []QueryCount `json:"top_queries"`
	ZeroScoreQueries []QueryCount `json:"zero_score_queries"`
	QueriesPerMinute float64      `json:"queries_per_minute"`
	IndexBuilds      int64        `json:"index_builds"`
	LastIndexBuild   *IndexEvent  `json:"last_index_build,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Runner drives message delivery into the aggregator, normally a
// kafka.Consumer built with Aggregator.Handle.
type Runner interface {
	Start(ctx context.Context) error
}

type Aggregator struct {
	mu               sync.RWMutex
	totalSearches    int64
	cacheHits        int64
	cacheMisses      int64
	zeroScores       int64
	indexBuilds      int64
	lastIndexBuild   *IndexEvent
	latencies        []int64
	nextLatency      int
	queryCounts      map[string]int64
	zeroScoreQueries map[string]int64
	startTime        time.Time
	now              func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:        make([]int64, 0, 1024),
		queryCounts:      make(map[string]int64),
		zeroScoreQueries: make(map[string]int64),
		startTime:        time.Now(),
		now:              time.Now,
		logger:           slog.Default().With("component", "analytics-aggregator"),
	}
}

// Run feeds the aggregator from runner until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, runner Runner) error {
	a.logger.Info("analytics aggregator starting")
	return runner.Start(ctx)
}

// Handle adapts the aggregator to a kafka.MessageHandler. Undecodable
// messages are logged and acknowledged so they are not redelivered forever.
func (a *Aggregator) Handle() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := decodeEvent(value)
		if err != nil {
			a.logger.Warn("skipping analytics event", "key", string(key), "error", err)
			return nil
		}
		switch e := event.(type) {
		case *SearchEvent:
			a.RecordSearch(*e)
		case *IndexEvent:
			a.RecordIndex(*e)
		}
		return nil
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.queryCounts[event.Query]++
	if event.Matched == 0 {
		a.zeroScores++
		a.zeroScoreQueries[event.Query]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyUs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexBuilds++
	a.lastIndexBuild = &event
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:  a.totalSearches,
		CacheHits:      a.cacheHits,
		CacheMisses:    a.cacheMisses,
		ZeroScoreCount: a.zeroScores,
		IndexBuilds:    a.indexBuilds,
	}
	if a.lastIndexBuild != nil {
		last := *a.lastIndexBuild
		stats.LastIndexBuild = &last
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueryCount)
	stats.ZeroScoreQueries = topN(a.zeroScoreQueries, topQueryCount)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending and query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
