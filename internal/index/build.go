package index

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/tokenizer"
)

// snapshot is one fully built, read-only view of the corpus.
type snapshot struct {
	docs       []Document
	tf         []map[string]float64
	idf        map[string]float64
	tokens     int
	generation uint64
}

func buildSnapshot(input []Document, generation uint64) *snapshot {
	docs := make([]Document, len(input))
	for i, d := range input {
		d.ID = i
		docs[i] = d
	}
	tf, tokens := buildTF(docs)
	return &snapshot{
		docs:       docs,
		tf:         tf,
		idf:        buildIDF(tf),
		tokens:     tokens,
		generation: generation,
	}
}

// buildTF returns, per document, each term's share of that document's tokens.
// A document without tokens gets an empty map.
func buildTF(docs []Document) ([]map[string]float64, int) {
	tf := make([]map[string]float64, len(docs))
	total := 0
	for i, d := range docs {
		terms := tokenizer.Tokenize(d.scoreableText())
		total += len(terms)
		counts := tokenizer.Counts(terms)
		freqs := make(map[string]float64, len(counts))
		n := float64(len(terms))
		for term, count := range counts {
			freqs[term] = float64(count) / n
		}
		tf[i] = freqs
	}
	return tf, total
}

// buildIDF derives document frequencies from the TF tables and smooths them
// as ln((N+1)/(df+1)), which stays non-negative for every df <= N.
func buildIDF(tf []map[string]float64) map[string]float64 {
	df := make(map[string]int)
	for _, freqs := range tf {
		for term := range freqs {
			df[term]++
		}
	}
	n := float64(len(tf))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((n + 1) / (float64(count) + 1))
	}
	return idf
}
