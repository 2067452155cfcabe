// Command moviesearch ranks movies against free-text queries from the
// command line.
//
// Queries are taken from the arguments, or read one per line from stdin when
// no arguments are given. Results go to stdout; logs go to stderr.
//
// Usage:
//
//	moviesearch [-config file] [-data movies.tsv] [-k 5] [-format text|json] "space war" ...
//	moviesearch -config configs/development.yaml -data movies.tsv -import
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dataPath := flag.String("data", "", "TSV movie file; overrides the configured corpus source")
	k := flag.Int("k", 0, "results per query (default from config)")
	format := flag.String("format", "text", "output format: text or json")
	importRows := flag.Bool("import", false, "copy the -data file into the configured postgres table and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *importRows {
		err = runImport(ctx, cfg, *dataPath)
	} else {
		err = runQueries(ctx, cfg, *dataPath, *k, *format, flag.Args())
	}
	if err != nil {
		slog.Error("moviesearch failed", "error", err)
		os.Exit(1)
	}
}

func runQueries(ctx context.Context, cfg *config.Config, dataPath string, k int, format string, queries []string) error {
	render, err := renderer(format)
	if err != nil {
		return err
	}
	if k <= 0 {
		k = cfg.Search.DefaultLimit
	}

	var source loader.Source
	switch {
	case dataPath != "":
		source = loader.NewTSVSource(dataPath)
	case cfg.Corpus.Source == config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to corpus database: %w", err)
		}
		defer client.Close()
		source = loader.NewPostgresSource(client, cfg.Corpus.Table)
	default:
		source = loader.NewTSVSource(cfg.Corpus.Path)
	}

	movies, err := source.Load(ctx)
	if err != nil {
		return err
	}
	idx := index.New(loader.Documents(movies),
		index.WithDefaultLimit(cfg.Search.DefaultLimit),
		index.WithEmptyCorpusError(cfg.Search.EmptyCorpusError),
		index.WithLogger(logger.WithComponent("index")),
	)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	run := func(query string) error {
		results, err := idx.Search(query, k)
		if err != nil {
			return fmt.Errorf("searching %q: %w", query, err)
		}
		return render(out, query, results)
	}

	if len(queries) > 0 {
		for _, q := range queries {
			if err := run(q); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if err := run(query); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runImport(ctx context.Context, cfg *config.Config, dataPath string) error {
	if dataPath == "" {
		dataPath = cfg.Corpus.Path
	}
	movies, err := loader.NewTSVSource(dataPath).Load(ctx)
	if err != nil {
		return err
	}
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to corpus database: %w", err)
	}
	defer client.Close()
	if err := loader.NewPostgresSource(client, cfg.Corpus.Table).Import(ctx, movies); err != nil {
		return err
	}
	slog.Info("import complete", "movies", len(movies), "table", cfg.Corpus.Table)
	return nil
}

func renderer(format string) (func(w io.Writer, query string, results []index.Result) error, error) {
	switch format {
	case "text":
		return presenter.Text, nil
	case "json":
		return presenter.JSON, nil
	default:
		return nil, fmt.Errorf("unknown format %q, want text or json", format)
	}
}
