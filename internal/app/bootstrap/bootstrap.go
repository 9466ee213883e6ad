package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	postservice "quill/contexts/wiki-editorial/post-service"
	postpostgres "quill/contexts/wiki-editorial/post-service/adapters/postgres"
	reviewengine "quill/contexts/wiki-editorial/review-engine"
	reviewpostgres "quill/contexts/wiki-editorial/review-engine/adapters/postgres"
	reviewredis "quill/contexts/wiki-editorial/review-engine/adapters/redis"
	"quill/internal/platform/config"
	"quill/internal/platform/db"
	"quill/internal/platform/httpserver"
	"quill/internal/platform/locking"
	"quill/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	redis    *locking.Redis
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	redis        *locking.Redis
	reviews      reviewengine.Module
	posts        postservice.Module
	cfg          config.Config
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

	rd, err := locking.Connect(cfg.RedisURL)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	postRepo := postpostgres.NewRepository(pg.DB, logger)
	postModule := postservice.NewModule(postservice.Dependencies{
		Posts:  postRepo,
		Dedup:  postRepo,
		Clock:  postpostgres.SystemClock{},
		IDGen:  postpostgres.UUIDGenerator{},
		Logger: logger,
	})

	reviewRepo := reviewpostgres.NewRepository(pg.DB, logger)
	reviewModule := reviewengine.NewModule(reviewengine.Dependencies{
		Reviews:    reviewRepo,
		Revisions:  reviewRepo,
		Votes:      reviewRepo,
		Posts:      reviewRepo,
		Locks:      reviewredis.NewLockCoordinator(rd.Client, logger),
		Outbox:     reviewRepo,
		OutboxRepo: reviewRepo,
		Clock:      reviewpostgres.SystemClock{},
		IDGen:      reviewpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	server := httpserver.New(postModule, reviewModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		redis:    rd,
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

	rd, err := locking.Connect(cfg.RedisURL)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		_ = rd.Close()
		return nil, err
	}

	postRepo := postpostgres.NewRepository(pg.DB, logger)
	postModule := postservice.NewModule(postservice.Dependencies{
		Posts:      postRepo,
		Dedup:      postRepo,
		Subscriber: kafka,
		Clock:      postpostgres.SystemClock{},
		IDGen:      postpostgres.UUIDGenerator{},
		Logger:     logger,
	})
	postModule.Consumer.Disabled = !cfg.EnablePostReviewConsumer

	reviewRepo := reviewpostgres.NewRepository(pg.DB, logger)
	reviewModule := reviewengine.NewModule(reviewengine.Dependencies{
		Reviews:    reviewRepo,
		Revisions:  reviewRepo,
		Votes:      reviewRepo,
		Posts:      reviewRepo,
		Locks:      reviewredis.NewLockCoordinator(rd.Client, logger),
		Outbox:     reviewRepo,
		OutboxRepo: reviewRepo,
		Publisher:  kafka,
		Clock:      reviewpostgres.SystemClock{},
		IDGen:      reviewpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	return &WorkerApp{
		postgres:     pg,
		redis:        rd,
		reviews:      reviewModule,
		posts:        postModule,
		cfg:          cfg,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
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
	var firstErr error
	if a.redis != nil {
		firstErr = a.redis.Close()
	}
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.posts.Consumer.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.cfg.EnableReviewDeadlineSweeper {
			if err := w.reviews.Sweeper.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableReviewOutboxRelay {
			if err := w.reviews.Relay.RunOnce(ctx); err != nil {
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
	var firstErr error
	if w.redis != nil {
		firstErr = w.redis.Close()
	}
	if w.postgres != nil {
		if err := w.postgres.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
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
