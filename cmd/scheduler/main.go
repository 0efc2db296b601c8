package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ipkwealth_backend/internal/email"
	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads"
	"ipkwealth_backend/internal/leads/repository"
	"ipkwealth_backend/internal/notification"
	"ipkwealth_backend/internal/scheduler"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/db"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"
	"ipkwealth_backend/platform/redisconn"
	"ipkwealth_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.UsesMemoryStore() {
		panic("scheduler requires STORE_DRIVER=postgres")
	}
	if cfg.GetRedisURL() == "" {
		panic("scheduler requires REDIS_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var counters sequence.Store = sequence.NewPostgresStore(pool)
	if strings.EqualFold(cfg.GetCounterBackend(), "redis") {
		var rdb *redis.Client
		if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
			c, err := redisconn.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			rdb = c
			return nil
		}); err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = rdb.Close() }()
		counters = sequence.NewRedisStore(rdb)
	}

	store := repository.New(pool)
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	notificationModule := notification.New(email.NewSender(cfg), store, store, log)
	notificationModule.RegisterHandlers(eventBus)

	// Worker-side lifecycle wiring (no HTTP handlers are mounted).
	leadsModule := leads.NewModule(store, counters, eventBus, metrics.New(cfg.GetMetricsNamespace(), nil), validator.New(), cfg, log)

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	if interval := cfg.GetOpenLeadSweepInterval(); interval > 0 {
		go scheduler.NewOpenLeadSweep(queue, log, interval).Run(ctx)
	} else {
		log.Info("open lead sweep disabled")
	}

	worker, err := scheduler.NewWorker(cfg, leadsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
