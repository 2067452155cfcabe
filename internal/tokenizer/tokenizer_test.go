package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"only separators", "  --!!?? ", []string{}},
		{"case folded", "Brave NEW World", []string{"brave", "new", "world"}},
		{"punctuation runs", "war...and--peace!", []string{"war", "and", "peace"}},
		{"keeps duplicates in order", "the cat, the hat", []string{"the", "cat", "the", "hat"}},
		{"digits are alphanumeric", "Apollo 13 (1995)", []string{"apollo", "13", "1995"}},
		{"tabs and newlines", "one\ttwo\nthree", []string{"one", "two", "three"}},
		{"apostrophe splits", "Harry's", []string{"harry", "s"}},
		{"single letters kept", "a new hope", []string{"a", "new", "hope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "It's a Wonderful Life -- a wonderful, WONDERFUL life."
	assert.Equal(t, Tokenize(text), Tokenize(text))
}

func TestCounts(t *testing.T) {
	got := Counts(Tokenize("new hope, new world"))
	assert.Equal(t, map[string]int{"new": 2, "hope": 1, "world": 1}, got)
	assert.Empty(t, Counts(nil))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Led by Woody, Andy's toys live happily in his room until Andy's
        birthday brings Buzz Lightyear onto the scene. Afraid of losing his place
        in Andy's heart, Woody plots against Buzz.`,
	"long": strings.Repeat(`A ticking-time-bomb insomniac and a slippery soap
        salesman channel primal male aggression into a shocking new form of
        therapy. Their concept catches on, with underground fight clubs forming
        in every town. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "space cowboys hunt a rogue android "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}
