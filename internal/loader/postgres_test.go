package loader

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, err := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	require.NoError(t, err)
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "moviesearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "moviesearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping postgres test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresSourceRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	table := fmt.Sprintf("movies_test_%d", time.Now().UnixNano())
	_, err := db.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		votes DOUBLE PRECISION NOT NULL DEFAULT 0,
		release_date TEXT NOT NULL DEFAULT '',
		runtime INTEGER,
		budget BIGINT,
		genre TEXT NOT NULL DEFAULT '',
		overview TEXT NOT NULL DEFAULT ''
	)`, table))
	require.NoError(t, err)
	t.Cleanup(func() { db.DB.ExecContext(context.Background(), "DROP TABLE "+table) })

	want := []Movie{
		{Title: "Zodiac", Votes: 7.5, ReleaseDate: "03-02-2007", Runtime: 157, Budget: 65000000, Genre: "Crime", Overview: "A cartoonist hunts a killer."},
		{Title: "Alien", Votes: 8.1, Genre: "Horror", Overview: "In space no one can hear you scream."},
	}
	src := NewPostgresSource(db, table)
	require.NoError(t, src.Import(ctx, want))

	got, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
