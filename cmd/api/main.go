package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleanbroker/internal/assignments"
	"cleanbroker/internal/bookings/repository"
	bookingsservice "cleanbroker/internal/bookings/service"
	"cleanbroker/internal/catalog"
	"cleanbroker/internal/cleaners"
	"cleanbroker/internal/events"
	apphttp "cleanbroker/internal/http"
	"cleanbroker/internal/http/router"
	"cleanbroker/internal/notification"
	"cleanbroker/internal/notification/outbox"
	"cleanbroker/internal/payments"
	"cleanbroker/internal/quotes"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/internal/scheduler"
	"cleanbroker/migrations"
	"cleanbroker/platform/config"
	"cleanbroker/platform/db"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	if reminderScheduler != nil {
		scheduler.SubscribeReminders(eventBus, reminderScheduler, log)
	}

	catalogCache, closeCache := initCatalogCache(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// The quotes repository doubles as the quote reader for the modules that
	// only need status checks and the paid marker.
	quotesRepo := quotesrepo.New(pool)

	// Bookings have no HTTP surface of their own; the service is driven by
	// the quotes, payments, and assignments modules.
	bookingsSvc := bookingsservice.New(repository.New(pool), log)

	cleanersModule := cleaners.NewModule(pool, val)
	catalogModule := catalog.NewModule(pool, catalogCache, cfg, log, val)
	assignmentsModule := assignments.NewModule(pool, quotesRepo, cleanersModule.Service(), bookingsSvc, eventBus, log, val)
	quotesModule := quotes.NewModule(pool, catalogModule.Service(), bookingsSvc, assignmentsModule.Service(), eventBus, log, val)
	paymentsModule := payments.NewModule(pool, quotesRepo, bookingsSvc, eventBus, log, val)

	// Notification module subscribes to domain events (not HTTP-facing).
	// Delivery happens in the scheduler binary; the API only enqueues.
	notification.NewModule(eventBus, outbox.New(pool), quotesRepo, cleanersModule.Service(), cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			quotesModule,
			cleanersModule,
			assignmentsModule,
			paymentsModule,
			catalogModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; booking reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func initCatalogCache(cfg config.RedisConfig, log *logger.Logger) (*redis.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; catalog price cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url for catalog cache", "error", err)
		return nil, nil
	}

	client := redis.NewClient(opt)
	return client, func() {
		_ = client.Close()
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
