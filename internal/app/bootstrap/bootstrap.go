package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	decisionengine "quorum/contexts/deliberation/decision-engine"
	postgresadapter "quorum/contexts/deliberation/decision-engine/adapters/postgres"
	redisadapter "quorum/contexts/deliberation/decision-engine/adapters/redis"
	workerapp "quorum/contexts/deliberation/decision-engine/application/workers"
	"quorum/contexts/deliberation/decision-engine/ports"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
	"quorum/internal/platform/token"

	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	sweeper      workerapp.DeadlineSweeper
	outboxRelay  workerapp.OutboxRelay
	sweepEnabled bool
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(postgresadapter.Models()...); err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := decisionengine.NewModule(decisionengine.Dependencies{
		Decisions: repo,
		Ledger:    repo,
		Registry:  repo,
		Cache:     buildTallyCache(cfg, logger),
		Outbox:    repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		Logger:    logger,
	})

	tokens := token.NewIssuer(cfg.TokenSecret, 7*24*time.Hour)
	server := httpserver.New(module, tokens, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(postgresadapter.Models()...); err != nil {
		_ = pg.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	cache := buildTallyCache(cfg, logger)
	module := decisionengine.NewModule(decisionengine.Dependencies{
		Decisions: repo,
		Ledger:    repo,
		Registry:  repo,
		Cache:     cache,
		Outbox:    repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		Logger:    logger,
	})

	return &WorkerApp{
		postgres: pg,
		sweeper:  module.Sweeper,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: messaging.NewBus(logger),
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		sweepEnabled: cfg.EnableDeadlineSweeper,
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: cfg.SweepInterval,
		logger:       logger,
	}, nil
}

func buildTallyCache(cfg config.Config, logger *slog.Logger) ports.TallyCache {
	if !cfg.EnableTallyCache || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return redisadapter.NewTallyCache(client, cfg.TallyCacheTTL, logger)
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.sweepEnabled {
			if err := w.sweeper.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
