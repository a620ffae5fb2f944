// Command api serves the snerberd and snowboard REST API.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snerberd/snerberd/internal/cache"
	"github.com/snerberd/snerberd/internal/config"
	"github.com/snerberd/snerberd/internal/docstore"
	"github.com/snerberd/snerberd/internal/handler"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/repository"
	"github.com/snerberd/snerberd/internal/server"
	"github.com/snerberd/snerberd/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// stores are the three backends the API needs before it can serve.
type stores struct {
	docs  *docstore.Store
	repo  *repository.Repository
	cache *cache.Cache
}

// openStores connects MongoDB, PostgreSQL and Redis in that order. On
// failure the ones already open are closed and the error is logged with
// credentials removed.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	var s stores
	var closers []func()
	fail := func(backend, dsn string, err error) (*stores, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logger.Error("failed to connect to "+backend,
			slog.String("error", sanitizeError(err, dsn)),
			slog.String("url", redactURL(dsn)),
		)
		return nil, err
	}

	var err error
	if s.docs, err = docstore.New(ctx, cfg.MongoURL, cfg.MongoDatabase); err != nil {
		return fail("MongoDB", cfg.MongoURL, err)
	}
	closers = append(closers, s.docs.Close)
	logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	if s.repo, err = repository.New(ctx, cfg.DatabaseURL); err != nil {
		return fail("PostgreSQL", cfg.DatabaseURL, err)
	}
	closers = append(closers, s.repo.Close)
	logger.Info("connected to PostgreSQL")

	if s.cache, err = cache.New(ctx, cfg.RedisURL); err != nil {
		return fail("Redis", cfg.RedisURL, err)
	}
	logger.Info("connected to Redis")

	return &s, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	router := server.NewRouter(server.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Records:        service.NewRecordService(st.docs, recorder),
		Keys:           st.repo,
		Health:         handler.NewHealthHandler(st.docs, st.repo, st.cache),
		Metrics:        recorder,
		AuthCache:      st.cache,
		Limiter:        st.cache,
		Invalidator:    st.cache,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := server.New(router, cfg, logger)
	// Stopped in reverse: Redis, PostgreSQL, MongoDB.
	srv.OnShutdown("mongo", func(context.Context) error { st.docs.Close(); return nil })
	srv.OnShutdown("postgres", func(context.Context) error { st.repo.Close(); return nil })
	srv.OnShutdown("redis", func(context.Context) error { return st.cache.Close() })

	logger.Info("starting server", "port", cfg.AppPort, "env", cfg.AppEnv)
	return srv.Run(ctx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// parseLogLevel accepts slog level names in any case, falling back to info.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

var passwordParam = regexp.MustCompile(`(?i)password=\S+`)

// redactURL drops the password from a connection URL, keeping the user
// name so logs still show which account was used.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if u.User != nil {
		name := u.User.Username()
		if name == "" {
			name = "redacted"
		}
		u.User = url.User(name)
	}
	return u.String()
}

// sanitizeError replaces each secret DSN in err with its redacted form and
// masks any password=... parameter left over.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range secrets {
		if s == "" {
			continue
		}
		r := redactURL(s)
		if r == "" {
			r = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, s, r)
	}
	return passwordParam.ReplaceAllString(msg, "password=redacted")
}
