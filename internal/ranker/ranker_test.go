package ranker

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersByScoreThenTitleThenID(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: 0, Title: "Zulu", Score: 0.5},
		{DocID: 1, Title: "Beta", Score: 0.1},
		{DocID: 2, Title: "Alpha", Score: 0.1},
		{DocID: 3, Title: "Alpha", Score: 0.1},
		{DocID: 4, Title: "Mike", Score: 0},
	}
	got := Rank(docs, 0)

	want := []int{0, 2, 3, 1, 4}
	ids := make([]int, len(got))
	for i, d := range got {
		ids[i] = d.DocID
	}
	assert.Equal(t, want, ids)
}

func TestRankTruncates(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: 0, Title: "A", Score: 1},
		{DocID: 1, Title: "B", Score: 2},
		{DocID: 2, Title: "C", Score: 3},
	}
	got := Rank(docs, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].DocID)
	assert.Equal(t, 1, got[1].DocID)

	assert.Len(t, Rank(docs, 10), 3)
	assert.Empty(t, Rank(nil, 5))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	docs := []ScoredDoc{
		{DocID: 0, Title: "B", Score: 0},
		{DocID: 1, Title: "A", Score: 0},
	}
	_ = Rank(docs, 0)
	assert.Equal(t, 0, docs[0].DocID)
}

func TestRankIsIndependentOfInputOrder(t *testing.T) {
	docs := make([]ScoredDoc, 50)
	for i := range docs {
		docs[i] = ScoredDoc{DocID: i, Title: fmt.Sprintf("t%02d", i%7), Score: float64(i % 3)}
	}
	want := Rank(docs, 10)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]ScoredDoc, len(docs))
		copy(shuffled, docs)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Rank(shuffled, 10))
	}
}

func BenchmarkRank(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			docs := make([]ScoredDoc, numDocs)
			for i := range docs {
				docs[i] = ScoredDoc{DocID: i, Title: fmt.Sprintf("movie-%d", i), Score: float64(i%10) / 10}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Rank(docs, 5)
			}
		})
	}
}
