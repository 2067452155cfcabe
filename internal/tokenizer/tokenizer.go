// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input and splits on runs of non-alphanumeric characters.
// There is no stop-word removal or stemming: every surviving token counts
// toward term frequency.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into lower-cased terms in input order. Duplicates are
// kept. Empty input yields an empty, non-nil slice.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, isSeparator)
}

// Counts returns how often each term occurs in terms.
func Counts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
