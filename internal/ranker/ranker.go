package ranker

import (
	"sort"
)

// ScoredDoc is a document's relevance for one query. Title is carried so
// that ties can be broken without a lookup.
type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Rank orders docs by score descending, then title ascending, then DocID
// ascending, and keeps at most limit entries. A non-positive limit keeps
// everything. The input slice is not modified.
func Rank(docs []ScoredDoc, limit int) []ScoredDoc {
	result := make([]ScoredDoc, len(docs))
	copy(result, docs)
	sort.Slice(result, func(i, j int) bool {
		return Less(result[i], result[j])
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Less reports whether a ranks ahead of b.
func Less(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.DocID < b.DocID
}
