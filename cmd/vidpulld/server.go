package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "modernc.org/sqlite"

	v1 "github.com/vmunix/vidpull/internal/api/v1"
	"github.com/vmunix/vidpull/internal/archive"
	"github.com/vmunix/vidpull/internal/config"
	"github.com/vmunix/vidpull/internal/download"
	"github.com/vmunix/vidpull/internal/events"
	"github.com/vmunix/vidpull/internal/host"
	"github.com/vmunix/vidpull/internal/metadata"
	"github.com/vmunix/vidpull/internal/migrations"
	"github.com/vmunix/vidpull/internal/resolve"
	"github.com/vmunix/vidpull/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg config.ServerConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDB opens the SQLite database and applies every migration.
func openDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	for i, m := range migrations.All {
		if _, err := db.Exec(m); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %03d: %w", i+1, err)
		}
	}
	return db, nil
}

// app is the wired daemon.
type app struct {
	handler http.Handler
	cache   *metadata.Cache
	bus     *events.Bus
}

// buildApp wires the pipeline: host client, cached host, resolver, bus,
// transferer, manager, pool, archive builder and HTTP API.
func buildApp(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*app, error) {
	quality, err := resolve.ParseQuality(cfg.Download.DefaultQuality)
	if err != nil {
		return nil, fmt.Errorf("default quality: %w", err)
	}

	// === Asset host ===
	hostClient := host.NewClient(cfg.Host.URL, cfg.Host.APIKey, cfg.Host.Timeout, logger.With("component", "host"))
	cache := metadata.NewCache(db, logger.With("component", "cache"))
	cachedHost := metadata.NewCachedHost(hostClient, cache, cfg.Cache.VariantsTTL, logger.With("component", "cachedhost"))
	resolver := resolve.NewResolver(cachedHost, logger.With("component", "resolve"))

	// === Transfers ===
	bus := events.NewBus(logger.With("component", "bus"))
	transferer := download.NewTransferer(download.TransferConfig{
		Resume: cfg.Download.Resume,
		Retry: download.RetryPolicy{
			MaxRetries: cfg.Download.MaxRetries,
			BaseDelay:  cfg.Download.BaseDelay,
			MaxDelay:   cfg.Download.MaxDelay,
		},
		AttemptTimeout:   cfg.Download.AttemptTimeout,
		ProgressInterval: cfg.Download.ProgressInterval,
	}, &http.Client{}, logger.With("component", "transfer"))
	manager := download.NewManager(transferer, resolver, bus, cfg.Download.CacheDir, logger.With("component", "download"))
	pool := download.NewPool(download.PoolConfig{
		Concurrency: cfg.Pool.TransferConcurrency,
		BatchDelay:  cfg.Pool.BatchDelay,
	}, logger.With("component", "pool"))

	// === Archives ===
	history := archive.NewHistoryStore(db)
	builder := archive.NewBuilder(archive.Deps{
		Resolver: resolver,
		Pool:     pool,
		Manager:  manager,
		Bus:      bus,
		History:  history,
	}, archive.Config{
		CacheDir:           cfg.Download.CacheDir,
		KeepFiles:          cfg.Download.KeepFiles,
		ResolveConcurrency: cfg.Pool.ResolveConcurrency,
	}, logger.With("component", "archive"))

	// === HTTP ===
	api, err := v1.New(v1.ServerDeps{
		Archiver:  builder,
		Downloads: manager,
		History:   history,
		Bus:       bus,
	}, v1.Config{Version: version, DefaultQuality: quality}, logger.With("component", "api"))
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("api: %w", err)
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	return &app{
		handler: v1.LogRequests(mux, logger.With("component", "http")),
		cache:   cache,
		bus:     bus,
	}, nil
}

func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg.Server, os.Stdout)
	slog.SetDefault(logger)

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	a, err := buildApp(cfg, db, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.bus.Close() }()

	logger.Info("server starting",
		"addr", cfg.Addr(),
		"config", configPath,
		"database", cfg.Database.Path,
		"host", cfg.Host.URL,
		"cache_dir", cfg.Download.CacheDir,
		"transfer_concurrency", cfg.Pool.TransferConcurrency,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := server.NewRunner(server.Config{
		Addr:          cfg.Addr(),
		PruneInterval: cfg.Cache.PruneInterval,
	}, a.handler, a.cache, logger.With("component", "runner"))

	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
