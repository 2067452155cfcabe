package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/resilience"
	"github.com/lib/pq"
)

// PostgresSource reads movies from a table with the columns
//
//	CREATE TABLE movies (
//	    id           BIGSERIAL PRIMARY KEY,
//	    title        TEXT NOT NULL,
//	    votes        DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    release_date TEXT NOT NULL DEFAULT '',
//	    runtime      INTEGER,
//	    budget       BIGINT,
//	    genre        TEXT NOT NULL DEFAULT '',
//	    overview     TEXT NOT NULL DEFAULT ''
//	);
//
// Rows come back in id order so document IDs are stable between reloads.
type PostgresSource struct {
	client *postgres.Client
	table  string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client, table string) *PostgresSource {
	return &PostgresSource{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "postgres-loader", "table", table),
	}
}

func (s *PostgresSource) Load(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := resilience.Retry(ctx, "load movies", s.retry, func(ctx context.Context) error {
		var err error
		movies, err = s.query(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("movies loaded", "movies", len(movies))
	return movies, nil
}

func (s *PostgresSource) query(ctx context.Context) ([]Movie, error) {
	q := fmt.Sprintf(
		`SELECT title, votes, release_date, runtime, budget, genre, overview FROM %s ORDER BY id`,
		pq.QuoteIdentifier(s.table),
	)
	rows, err := s.client.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	movies := make([]Movie, 0)
	for rows.Next() {
		var (
			m       Movie
			runtime sql.NullInt64
			budget  sql.NullInt64
		)
		if err := rows.Scan(&m.Title, &m.Votes, &m.ReleaseDate, &runtime, &budget, &m.Genre, &m.Overview); err != nil {
			return nil, fmt.Errorf("scanning movie row: %w", err)
		}
		m.Runtime = int(runtime.Int64)
		m.Budget = budget.Int64
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating movie rows: %w", err)
	}
	return movies, nil
}

// Import replaces the contents of the table with movies inside a single
// transaction, preserving slice order in the id column.
func (s *PostgresSource) Import(ctx context.Context, movies []Movie) error {
	table := pq.QuoteIdentifier(s.table)
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY`, table)); err != nil {
			return fmt.Errorf("truncating %s: %w", s.table, err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.table,
			"title", "votes", "release_date", "runtime", "budget", "genre", "overview"))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", s.table, err)
		}
		for _, m := range movies {
			if _, err := stmt.ExecContext(ctx, m.Title, m.Votes, m.ReleaseDate, m.Runtime, m.Budget, m.Genre, m.Overview); err != nil {
				stmt.Close()
				return fmt.Errorf("copying movie %q: %w", m.Title, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy into %s: %w", s.table, err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("closing copy statement: %w", err)
		}
		s.logger.Info("movies imported", "movies", len(movies))
		return nil
	})
}
