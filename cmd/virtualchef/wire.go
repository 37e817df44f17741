package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sanny1998/Virtual-chef/internal/config"
	"github.com/Sanny1998/Virtual-chef/internal/conversation"
	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/engine"
	"github.com/Sanny1998/Virtual-chef/internal/gpt"
	"github.com/Sanny1998/Virtual-chef/internal/guard"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
	"github.com/Sanny1998/Virtual-chef/internal/metrics"
	"github.com/Sanny1998/Virtual-chef/internal/recipe"
	"github.com/Sanny1998/Virtual-chef/internal/storage"
)

// app holds the wired dependencies for one run.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	store    domain.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	engine   *engine.Engine
	sessions *engine.Sessions
	userID   string
	closers  []func(context.Context) error
}

// openLogger creates the logger. Logs go to a file by default so the chat
// stays clean.
func openLogger(cfg config.Config) (*logger.Logger, io.Writer, func() error, error) {
	level := logger.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" || cfg.Log.File == "stderr" {
		return logger.New(level, os.Stderr), os.Stderr, func() error { return nil }, nil
	}

	if dir := filepath.Dir(cfg.Log.File); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening log file %s: %w", cfg.Log.File, err)
	}
	return logger.New(level, f), f, f.Close, nil
}

// openStore builds the configured backend.
func openStore(cfg config.Config, log *logger.Logger) (domain.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(log), nil
	case config.BackendSQLite:
		return storage.OpenSQLite(cfg.Store.SQLitePath, log)
	case config.BackendRedis:
		base, err := storage.OpenSQLite(cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		timers, err := storage.NewRedisTimerStore(storage.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		}, log)
		if err != nil {
			base.Close()
			return nil, err
		}
		return storage.WithTimers(base, timers), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// newGenerator returns the OpenAI generator when a key is configured and
// the offline catalog otherwise.
func newGenerator(cfg config.Config, log *logger.Logger) domain.RecipeGenerator {
	if cfg.OpenAI.APIKey == "" {
		log.Info("no OpenAI key, using the built-in recipe catalog")
		return recipe.NewCatalogGenerator(log)
	}
	client := gpt.NewClient(gpt.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL), log,
		gpt.WithModel(cfg.OpenAI.Model),
		gpt.WithTemperature(cfg.OpenAI.Temperature),
		gpt.WithMaxTokens(cfg.OpenAI.MaxTokens),
		gpt.WithRateLimit(cfg.OpenAI.RequestsPerSecond, cfg.OpenAI.Burst),
	)
	log.Info("recipes generated with %s", cfg.OpenAI.Model)
	return gpt.NewGenerator(client, log)
}

// initTracing installs a tracer provider that pretty-prints spans to out.
func initTracing(out io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// buildApp wires everything the chat and subcommands need.
func buildApp(cfg config.Config) (*app, error) {
	log, logOut, closeLog, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error {
		_ = log.Sync()
		return closeLog()
	})

	if cfg.Observability.Trace {
		shutdown, err := initTracing(logOut)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, shutdown)
	}

	store, err := openStore(cfg, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	g := guard.Default()
	if cfg.Guard.RulesFile != "" {
		if g, err = guard.Load(cfg.Guard.RulesFile); err != nil {
			a.close()
			return nil, err
		}
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	a.engine = engine.New(conversation.NewRouter(g, log), g, newGenerator(cfg, log), store, log,
		engine.WithMetrics(a.metrics),
		engine.WithGenerationTimeout(cfg.GenerationTimeout()),
	)
	a.sessions = engine.NewSessions(a.engine, store, log)

	a.userID = cfg.User.ID
	if a.userID == "" {
		a.userID = os.Getenv("USER")
	}
	if a.userID == "" {
		a.userID = engine.NewUserID()
		log.Info("no user configured, using %s", a.userID)
	}
	return a, nil
}

// close releases resources in reverse order.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
