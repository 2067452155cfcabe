// Package index holds the in-memory TF-IDF tables for a fixed collection of
// documents and answers ranked queries against them.
//
// An Index is fully built by New before it is returned. The tables are never
// mutated afterwards; Rebuild constructs a complete replacement and publishes
// it with a single atomic store, so concurrent Search calls always see one
// consistent generation.
package index

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLimit is the number of results returned when a caller passes k <= 0.
const DefaultLimit = 5

type Index struct {
	current          atomic.Pointer[snapshot]
	buildMu          sync.Mutex
	generation       uint64
	defaultLimit     int
	emptyCorpusError bool
	logger           *slog.Logger
}

type Option func(*Index)

// WithEmptyCorpusError makes Search on a zero-document corpus return
// errors.ErrEmptyCorpus instead of an empty result.
func WithEmptyCorpusError(enabled bool) Option {
	return func(idx *Index) {
		idx.emptyCorpusError = enabled
	}
}

// WithDefaultLimit overrides DefaultLimit. Non-positive values are ignored.
func WithDefaultLimit(limit int) Option {
	return func(idx *Index) {
		if limit > 0 {
			idx.defaultLimit = limit
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// New builds term frequencies and then inverse document frequencies for docs.
// It never fails; an empty collection produces empty tables.
func New(docs []Document, opts ...Option) *Index {
	idx := &Index{
		defaultLimit: DefaultLimit,
		logger:       slog.Default().With("component", "index"),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.Rebuild(docs)
	return idx
}

// Rebuild replaces the published tables with ones built from docs. Readers
// keep using the previous generation until the new one is complete.
// Concurrent rebuilds are serialised so generations are published in order.
func (idx *Index) Rebuild(docs []Document) Stats {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()
	start := time.Now()
	idx.generation++
	snap := buildSnapshot(docs, idx.generation)
	idx.current.Store(snap)
	stats := snap.stats()
	idx.logger.Info("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", snap.tokens,
		"generation", stats.Generation,
		"duration", time.Since(start),
	)
	return stats
}

func (idx *Index) Stats() Stats {
	return idx.current.Load().stats()
}

func (idx *Index) Len() int {
	return len(idx.current.Load().docs)
}

// Documents returns a copy of the indexed documents in ID order.
func (idx *Index) Documents() []Document {
	docs := idx.current.Load().docs
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}

// TermFrequencies returns a copy of the TF entry for document id, or nil if
// the id is unknown.
func (idx *Index) TermFrequencies(id int) map[string]float64 {
	snap := idx.current.Load()
	if id < 0 || id >= len(snap.tf) {
		return nil
	}
	out := make(map[string]float64, len(snap.tf[id]))
	for term, freq := range snap.tf[id] {
		out[term] = freq
	}
	return out
}

// IDF returns the weight for term and whether any document contains it.
func (idx *Index) IDF(term string) (float64, bool) {
	weight, ok := idx.current.Load().idf[term]
	return weight, ok
}

// Terms lists every indexed term in lexical order.
func (idx *Index) Terms() []string {
	idf := idx.current.Load().idf
	terms := make([]string, 0, len(idf))
	for term := range idf {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (s *snapshot) stats() Stats {
	return Stats{
		Documents:  len(s.docs),
		Terms:      len(s.idf),
		Generation: s.generation,
	}
}
