package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	registry "github.com/goliatone/go-voter-registry"
	"github.com/goliatone/go-voter-registry/activitymap"
	"github.com/goliatone/go-voter-registry/config"
	"github.com/goliatone/go-voter-registry/metrics"
	"github.com/goliatone/go-voter-registry/persistence"
	"github.com/uptrace/bun/extra/bundebug"
)

func newLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func main() {
	configPath := flag.String("config", os.Getenv("REGISTRY_CONFIG"), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.App.Env)

	if err := run(cfg, log); err != nil {
		log.Error("registry stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persistence.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := persistence.Migrate(ctx, db, registry.GetMigrationsFS(), registry.MigrationsDir); err != nil {
		return err
	}
	log.Info("migrations applied", "driver", cfg.Database.Driver)

	metricsSink := metrics.NewSink()
	auditSink := activitymap.NewSink(db)

	srv, err := registry.NewServer(cfg, db,
		registry.WithServerLogger(log),
		registry.WithServerActivitySink(registry.MultiActivitySink(metricsSink, auditSink)),
		registry.WithServerMetricsHandler(metricsSink.Handler()),
		registry.WithServerDebug(cfg.IsDev()),
	)
	if err != nil {
		return err
	}

	if n, err := srv.Repos.Sessions().DeleteExpired(ctx); err != nil {
		log.Warn("expired session cleanup failed", "err", err)
	} else if n > 0 {
		log.Info("expired sessions removed", "count", n)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.App.Listen(cfg.HTTP.Addr)
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "prefix", cfg.GetRoutePrefix())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.App.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("graceful shutdown complete")
	return nil
}
