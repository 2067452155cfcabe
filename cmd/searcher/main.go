// Command searcher serves TF-IDF movie search over HTTP.
//
// The corpus is loaded once at startup from the configured source (a TSV
// file or a PostgreSQL table) and can be reloaded without downtime through
// POST /api/v1/index/reload. Redis result caching and Kafka search analytics
// are enabled from config.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	checker := health.NewChecker()
	m := metrics.New(prometheus.DefaultRegisterer)

	source, closeSource, err := openSource(ctx, cfg, checker)
	if err != nil {
		return err
	}
	defer closeSource()

	start := time.Now()
	movies, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading initial corpus: %w", err)
	}
	idx := index.New(loader.Documents(movies),
		index.WithDefaultLimit(cfg.Search.DefaultLimit),
		index.WithEmptyCorpusError(cfg.Search.EmptyCorpusError),
		index.WithLogger(logger.WithComponent("index")),
	)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := idx.Stats()
		msg := fmt.Sprintf("%d documents, generation %d", stats.Documents, stats.Generation)
		if stats.Documents == 0 && cfg.Search.EmptyCorpusError {
			return health.ComponentHealth{Status: health.StatusDown, Message: msg}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: msg}
	})

	opts := []executor.Option{executor.WithMetrics(m)}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			opts = append(opts, executor.WithCache(queryCache))
			checker.RegisterOptional("redis", health.Ping(redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var aggregator *analytics.Aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 10000)
		collector.Start(gctx)
		defer collector.Close()
		opts = append(opts, executor.WithCollector(collector))

		aggregator = analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.Handle())
		g.Go(func() error {
			return aggregator.Run(gctx, consumer)
		})
		slog.Info("search analytics enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	exec := executor.New(idx, source, cfg.Corpus.Source, opts...)
	exec.RecordBuild(idx.Stats(), time.Since(start))

	h := handler.New(exec, queryCache, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m,
		"/api/v1/search",
		"/api/v1/index/reload",
		"/api/v1/index/stats",
		"/api/v1/cache/stats",
		"/api/v1/cache/invalidate",
		"/api/v1/analytics",
		"/health/live",
		"/health/ready",
	)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, metrics.Handler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openSource builds the configured corpus source. The returned func releases
// any connections it holds.
func openSource(ctx context.Context, cfg *config.Config, checker *health.Checker) (loader.Source, func(), error) {
	switch cfg.Corpus.Source {
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to corpus database: %w", err)
		}
		checker.RegisterOptional("postgres", health.Ping(client.Ping))
		slog.Info("corpus source: postgres", "table", cfg.Corpus.Table, "host", cfg.Postgres.Host)
		return loader.NewPostgresSource(client, cfg.Corpus.Table), func() { client.Close() }, nil
	default:
		slog.Info("corpus source: tsv", "path", cfg.Corpus.Path)
		return loader.NewTSVSource(cfg.Corpus.Path), func() {}, nil
	}
}
