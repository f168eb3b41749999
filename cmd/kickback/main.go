package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kickback-hq/kickback/internal/admin"
	corecfg "github.com/kickback-hq/kickback/internal/core/config"
	"github.com/kickback-hq/kickback/internal/core/storage/postgres"
	"github.com/kickback-hq/kickback/internal/idempotency"
	"github.com/kickback-hq/kickback/internal/ingestion"
	"github.com/kickback-hq/kickback/internal/migrations"
	"github.com/kickback-hq/kickback/internal/projector"
	"github.com/kickback-hq/kickback/internal/ratelimit"
	"github.com/kickback-hq/kickback/internal/retry"
	"github.com/kickback-hq/kickback/internal/search"
	"github.com/kickback-hq/kickback/internal/server"
)

const workerRetryAttempts = 3

func main() {
	configPath := flag.String("config", "kickback.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	idleSleep, err := cfg.Projector.IdleSleepDuration()
	if err != nil {
		slog.Error("Invalid projector idle sleep", "value", cfg.Projector.IdleSleep, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Redis (rate limiter + idempotency guard state)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	limiter := ratelimit.NewLimiter(rdb, cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	guard := idempotency.NewGuard(rdb)

	slog.Info("Rate limiter initialized",
		"per_minute", cfg.RateLimit.PerMinute,
		"burst", cfg.RateLimit.Burst,
		"idempotency_guard", cfg.Flags.IdempotencyGuard,
	)

	// 4. Initialize Projection
	aggAdapter := postgres.NewAggregateAdapter(dbAdapter.DB())
	proj := projector.New(dbAdapter, aggAdapter,
		projector.WithBatchSize(cfg.Projector.BatchSize),
	)

	slog.Info("Projector initialized",
		"enabled", cfg.Projector.Enabled,
		"batch_size", cfg.Projector.BatchSize,
		"idle_sleep", idleSleep,
	)

	// 5. Initialize Services
	ingestionSvc := ingestion.NewService(dbAdapter, dbAdapter, guard, cfg.Flags.IdempotencyGuard, cfg.Server.MaxBodySizeMB)
	searchSvc := search.NewService(aggAdapter)
	adminSvc := admin.NewService(proj, cfg.Projector.Enabled)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine, limiter)
	searchSvc.RegisterRoutes(srv.Engine, limiter)
	adminSvc.RegisterRoutes(srv.Engine, limiter)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Projector.Enabled {
		g.Go(func() error {
			// The projector does no internal retries; wrap the worker so
			// transient store failures restart the loop with backoff.
			_, err := retry.Do(gctx, workerRetryAttempts, func() (struct{}, error) {
				return struct{}{}, proj.RunForever(gctx, idleSleep)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		slog.Info("Projection worker disabled by config")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
