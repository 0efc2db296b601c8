package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ipkwealth_backend/internal/email"
	"ipkwealth_backend/internal/events"
	apphttp "ipkwealth_backend/internal/http"
	"ipkwealth_backend/internal/http/router"
	"ipkwealth_backend/internal/leads"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/memstore"
	"ipkwealth_backend/internal/leads/repository"
	"ipkwealth_backend/internal/notification"
	"ipkwealth_backend/internal/roster"
	"ipkwealth_backend/internal/scheduler"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/migrations"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/db"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"
	"ipkwealth_backend/platform/redisconn"
	"ipkwealth_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// appStore is the persistence surface shared by the leads and roster modules.
type appStore interface {
	leads.Store
	roster.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "store", cfg.StoreDriver, "counters", cfg.GetCounterBackend())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(cfg.GetMetricsNamespace(), registry)

	// ========================================================================
	// Persistence
	// ========================================================================

	var (
		store    appStore
		counters sequence.Store
		health   apphttp.HealthChecker
	)

	if cfg.UsesMemoryStore() {
		mem := memstore.New()
		seedDevRMs(mem, cfg.DevRMs, log)
		store = mem
		counters = sequence.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on restart")
	} else {
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
		log.Info("database connection established")

		if cfg.MigrateOnStart {
			if err := db.RunMigrations(ctx, cfg, migrations.Files); err != nil {
				log.Error("failed to apply migrations", "error", err)
				panic("failed to apply migrations: " + err.Error())
			}
			log.Info("database migrations applied")
		}

		store = repository.New(pool)
		counters = sequence.NewPostgresStore(pool)
		health = pool
	}

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

	// ========================================================================
	// Modules
	// ========================================================================

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	leadsModule := leads.NewModule(store, counters, eventBus, appMetrics, val, cfg, log)
	rosterModule := roster.NewModule(store, val, log)

	notificationModule := notification.New(email.NewSender(cfg), store, store, log)
	notificationModule.RegisterHandlers(eventBus)
	if !cfg.IsSMTPEnabled() {
		log.Info("SMTP not configured; assignment emails disabled")
	}

	if cfg.GetRedisURL() != "" {
		queue, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
		} else {
			defer func() { _ = queue.Close() }()
			leadsModule.SetAssignmentQueue(queue)
		}
	} else {
		log.Warn("REDIS_URL not configured; background assignment disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		Metrics:  registry,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			rosterModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// seedDevRMs adds active RMs to an empty in-memory store so assignment can
// be exercised locally.
func seedDevRMs(store *memstore.Store, names []string, log *logger.Logger) {
	now := time.Now()
	for i, name := range names {
		store.PutUser(domain.User{
			ID:        uuid.New(),
			Name:      name,
			Role:      domain.RoleRM,
			Status:    domain.UserStatusActive,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if len(names) > 0 {
		log.Info("seeded development RMs", "count", len(names))
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
