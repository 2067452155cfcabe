// Package loader turns external movie records into index documents. It owns
// every concern about source formats: parsing, trimming, type coercion and
// skipping malformed rows. The index never sees raw records.
package loader

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
)

// Movie is one record as stored in the source. Only Title and Overview are
// scored; the remaining fields are carried for presentation.
type Movie struct {
	Title       string  `json:"title"`
	Votes       float64 `json:"votes"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	Budget      int64   `json:"budget"`
	Genre       string  `json:"genre"`
	Overview    string  `json:"overview"`
}

// Document converts the movie into an index document.
func (m Movie) Document() index.Document {
	return index.Document{
		Title: m.Title,
		Body:  m.Overview,
	}
}

// Documents converts movies in order, so document IDs line up with slice
// positions.
func Documents(movies []Movie) []index.Document {
	docs := make([]index.Document, len(movies))
	for i, m := range movies {
		docs[i] = m.Document()
	}
	return docs
}

// Source supplies the full, ordered movie collection.
type Source interface {
	Load(ctx context.Context) ([]Movie, error)
}
