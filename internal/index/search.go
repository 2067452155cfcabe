package index

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

// Relevance scores document id against query as the sum of tf*idf over the
// query's terms. Repeated query terms count once per occurrence. Terms that
// are unknown to the corpus or absent from the document add nothing, and an
// unknown id scores 0.
func (idx *Index) Relevance(query string, id int) float64 {
	snap := idx.current.Load()
	if id < 0 || id >= len(snap.docs) {
		return 0
	}
	return snap.relevance(tokenizer.Tokenize(query), id)
}

// View is one published generation of the index. It keeps answering from
// that generation after later rebuilds, so a caller that needs the stats and
// the results of a query to agree reads both through the same View.
type View struct {
	snap             *snapshot
	defaultLimit     int
	emptyCorpusError bool
	logger           *slog.Logger
}

// View pins the currently published generation.
func (idx *Index) View() View {
	return View{
		snap:             idx.current.Load(),
		defaultLimit:     idx.defaultLimit,
		emptyCorpusError: idx.emptyCorpusError,
		logger:           idx.logger,
	}
}

func (v View) Stats() Stats {
	return v.snap.stats()
}

// Search scores every document against query and returns at most k results
// ordered by score descending, then title, then ID. k <= 0 selects the
// default limit. Documents scoring 0 are included, so an empty query returns
// the first k documents in title order.
func (idx *Index) Search(query string, k int) ([]Result, error) {
	return idx.View().Search(query, k)
}

// Search runs query against the pinned generation.
func (v View) Search(query string, k int) ([]Result, error) {
	snap := v.snap
	if len(snap.docs) == 0 {
		if v.emptyCorpusError {
			return nil, apperrors.ErrEmptyCorpus
		}
		return []Result{}, nil
	}
	if k <= 0 {
		k = v.defaultLimit
	}
	terms := tokenizer.Tokenize(query)
	scored := make([]ranker.ScoredDoc, len(snap.docs))
	for i, d := range snap.docs {
		scored[i] = ranker.ScoredDoc{
			DocID: d.ID,
			Title: d.Title,
			Score: snap.relevance(terms, i),
		}
	}
	ranked := ranker.Rank(scored, k)
	results := make([]Result, len(ranked))
	for i, sd := range ranked {
		results[i] = Result{
			Document: snap.docs[sd.DocID],
			Score:    sd.Score,
		}
	}
	v.logger.Debug("query executed",
		"query", query,
		"terms", terms,
		"generation", snap.generation,
		"results", len(results),
	)
	return results, nil
}

func (s *snapshot) relevance(terms []string, id int) float64 {
	freqs := s.tf[id]
	var score float64
	for _, term := range terms {
		freq, inDoc := freqs[term]
		if !inDoc {
			continue
		}
		weight, known := s.idf[term]
		if !known {
			continue
		}
		score += freq * weight
	}
	return score
}
