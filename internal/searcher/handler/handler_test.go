package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	movies []loader.Movie
	err    error
}

func (s *fixedSource) Load(ctx context.Context) ([]loader.Movie, error) {
	return s.movies, s.err
}

func newHandler(t *testing.T, src *fixedSource, opts ...index.Option) *Handler {
	t.Helper()
	idx := index.New(loader.Documents(src.movies), opts...)
	return New(executor.New(idx, src, "test"), nil, 5, 10)
}

func catalogue() []loader.Movie {
	return []loader.Movie{
		{Title: "Beta", Overview: "a new hope"},
		{Title: "Alpha", Overview: "brave new world"},
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestSearchHandler(t *testing.T) {
	h := newHandler(t, &fixedSource{movies: catalogue()})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var body executor.SearchResult
	decode(t, rec, &body)
	assert.Equal(t, "new", body.Query)
	assert.Equal(t, 2, body.TotalDocs)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "Alpha", body.Results[0].Title)
	assert.Equal(t, "Beta", body.Results[1].Title)
}

func TestSearchHandlerEmptyQuery(t *testing.T) {
	h := newHandler(t, &fixedSource{movies: catalogue()})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body executor.SearchResult
	decode(t, rec, &body)
	require.Len(t, body.Results, 2)
	for _, hit := range body.Results {
		assert.Zero(t, hit.Score)
	}
}

func TestSearchHandlerLimit(t *testing.T) {
	movies := make([]loader.Movie, 20)
	for i := range movies {
		movies[i] = loader.Movie{Title: string(rune('A' + i)), Overview: "story"}
	}
	h := newHandler(t, &fixedSource{movies: movies})

	tests := []struct {
		name   string
		limit  string
		status int
		want   int
	}{
		{"default", "", http.StatusOK, 5},
		{"explicit", "3", http.StatusOK, 3},
		{"capped", "500", http.StatusOK, 10},
		{"zero", "0", http.StatusBadRequest, 0},
		{"negative", "-2", http.StatusBadRequest, 0},
		{"not a number", "many", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/search?q=story"
			if tt.limit != "" {
				target += "&limit=" + tt.limit
			}
			rec := httptest.NewRecorder()
			h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				var body map[string]string
				decode(t, rec, &body)
				assert.Equal(t, "limit must be a positive integer", body["error"])
				return
			}
			var body executor.SearchResult
			decode(t, rec, &body)
			assert.Len(t, body.Results, tt.want)
		})
	}
}

func TestSearchHandlerEmptyCorpus(t *testing.T) {
	h := newHandler(t, &fixedSource{}, index.WithEmptyCorpusError(true))

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "corpus is empty", body["error"])
}

func TestReloadHandler(t *testing.T) {
	src := &fixedSource{movies: catalogue()}
	h := newHandler(t, src)

	src.movies = append(catalogue(), loader.Movie{Title: "Gamma", Overview: "old world"})
	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats index.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, uint64(2), stats.Generation)

	rec = httptest.NewRecorder()
	h.IndexStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/index/stats", nil))
	decode(t, rec, &stats)
	assert.Equal(t, 3, stats.Documents)
}

func TestReloadHandlerSourceDown(t *testing.T) {
	src := &fixedSource{movies: catalogue()}
	h := newHandler(t, src)
	src.err = errors.Join(errors.New("dial tcp: refused"), apperrors.ErrSourceUnavailable)

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "corpus source unavailable", body["error"])
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	h := newHandler(t, &fixedSource{movies: catalogue()})

	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
