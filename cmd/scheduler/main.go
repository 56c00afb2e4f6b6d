package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleanbroker/internal/bookings/repository"
	bookingsservice "cleanbroker/internal/bookings/service"
	"cleanbroker/internal/cleaners"
	"cleanbroker/internal/email"
	"cleanbroker/internal/events"
	"cleanbroker/internal/notification"
	"cleanbroker/internal/notification/outbox"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/internal/scheduler"
	"cleanbroker/platform/config"
	"cleanbroker/platform/db"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

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

	sender := email.NewSender(cfg)
	if !cfg.GetEmailEnabled() {
		log.Warn("email delivery disabled; outbox rows will be marked sent without delivery")
	}

	outboxRepo := outbox.New(pool)
	dispatcher := notification.NewDispatcher(outboxRepo, sender, log)

	val := validator.New()

	// The reminder task handler re-renders from current quote and cleaner
	// state, so the worker carries the same notification wiring as the API.
	eventBus := events.NewInMemoryBus(log)
	cleanersModule := cleaners.NewModule(pool, val)
	notificationModule := notification.NewModule(eventBus, outboxRepo, quotesrepo.New(pool), cleanersModule.Service(), cfg, log)

	bookingsSvc := bookingsservice.New(repository.New(pool), log)

	worker, err := scheduler.NewWorker(cfg, dispatcher, notificationModule, bookingsSvc, log)
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
