package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

const (
	tsvColumns    = 7
	maxLineLength = 1 << 20
)

// TSVSource reads movies from a tab-separated file whose first line is a
// header and whose columns are title, votes, release date, runtime, budget,
// genre and overview.
type TSVSource struct {
	Path   string
	logger *slog.Logger
}

func NewTSVSource(path string) *TSVSource {
	return &TSVSource{
		Path:   path,
		logger: slog.Default().With("component", "tsv-loader", "path", path),
	}
}

func (s *TSVSource) Load(ctx context.Context) ([]Movie, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening movie file %s: %w: %w", s.Path, apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()

	movies, skipped, err := ReadTSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("reading movie file %s: %w", s.Path, err)
	}
	s.logger.Info("movies loaded", "movies", len(movies), "skipped_rows", skipped)
	return movies, nil
}

// ReadTSV parses r and returns the well-formed rows plus the number of rows
// that were skipped. Only read errors are returned; malformed rows are not
// errors.
func ReadTSV(ctx context.Context, r io.Reader) ([]Movie, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var (
		movies  []Movie
		skipped int
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}
		if lineNo%1000 == 0 && ctx.Err() != nil {
			return nil, skipped, ctx.Err()
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		movie, err := parseRow(line)
		if err != nil {
			skipped++
			slog.Debug("skipping malformed row", "line", lineNo, "error", err)
			continue
		}
		movies = append(movies, movie)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	if movies == nil {
		movies = []Movie{}
	}
	return movies, skipped, nil
}

func parseRow(line string) (Movie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < tsvColumns {
		return Movie{}, fmt.Errorf("%w: %d columns, want %d", apperrors.ErrMalformedRecord, len(fields), tsvColumns)
	}
	votes, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Movie{}, fmt.Errorf("%w: votes: %v", apperrors.ErrMalformedRecord, err)
	}
	runtime, err := optionalInt(fields[3])
	if err != nil {
		return Movie{}, fmt.Errorf("%w: runtime: %v", apperrors.ErrMalformedRecord, err)
	}
	budget, err := optionalInt(fields[4])
	if err != nil {
		return Movie{}, fmt.Errorf("%w: budget: %v", apperrors.ErrMalformedRecord, err)
	}
	return Movie{
		Title:       strings.TrimSpace(fields[0]),
		Votes:       votes,
		ReleaseDate: strings.TrimSpace(fields[2]),
		Runtime:     int(runtime),
		Budget:      budget,
		Genre:       strings.TrimSpace(fields[5]),
		Overview:    strings.TrimSpace(fields[6]),
	}, nil
}

// optionalInt treats a blank field as zero.
func optionalInt(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	return strconv.ParseInt(field, 10, 64)
}
