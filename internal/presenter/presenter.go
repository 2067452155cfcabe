// Package presenter renders ranked search results for people and programs.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
)

// Hit is the wire form of a single ranked result.
type Hit struct {
	Rank     int     `json:"rank"`
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Overview string  `json:"overview"`
	Score    float64 `json:"score"`
}

// Response is the wire form of a whole result set.
type Response struct {
	Query   string `json:"query"`
	Results []Hit  `json:"results"`
}

func NewResponse(query string, results []index.Result) Response {
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Rank:     i + 1,
			ID:       r.Document.ID,
			Title:    r.Document.Title,
			Overview: r.Document.Body,
			Score:    r.Score,
		}
	}
	return Response{Query: query, Results: hits}
}

// Text writes the console layout:
//
//	Results for query "space war"
//	1: Star Wars 	Princess Leia is captured...
//
// followed by a blank line.
func Text(w io.Writer, query string, results []index.Result) error {
	if _, err := fmt.Fprintf(w, "Results for query %q\n", query); err != nil {
		return err
	}
	if len(results) == 0 {
		if _, err := fmt.Fprintln(w, "No results."); err != nil {
			return err
		}
	}
	for i, r := range results {
		if _, err := fmt.Fprintf(w, "%d: %s \t%s\n", i+1, r.Document.Title, r.Document.Body); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// JSON writes one Response object followed by a newline.
func JSON(w io.Writer, query string, results []index.Result) error {
	return json.NewEncoder(w).Encode(NewResponse(query, results))
}
