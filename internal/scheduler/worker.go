package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingsrepo "cleanbroker/internal/bookings/repository"
	"cleanbroker/platform/apperr"
	"cleanbroker/platform/config"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	outboxPollInterval = 2 * time.Second
	outboxBatchSize    = 50
)

// OutboxDispatcher drains due notifications. Satisfied by the notification
// dispatcher.
type OutboxDispatcher interface {
	Dispatch(ctx context.Context, limit int) (int, error)
}

// ReminderQueuer turns a due reminder into an outbox row. Satisfied by the
// notification module.
type ReminderQueuer interface {
	QueueBookingReminder(ctx context.Context, quoteID uuid.UUID, scheduledAt time.Time) error
}

// BookingReader checks whether a booking is still worth reminding about.
// Satisfied by the bookings service.
type BookingReader interface {
	GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*bookingsrepo.Booking, error)
}

// Worker runs the asynq server plus the outbox polling loop.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher OutboxDispatcher
	reminders  ReminderQueuer
	bookings   BookingReader
	log        *logger.Logger
}

// NewWorker creates a scheduler worker bound to the configured Redis queue.
func NewWorker(
	cfg config.SchedulerConfig,
	dispatcher OutboxDispatcher,
	reminders ReminderQueuer,
	bookings BookingReader,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		reminders:  reminders,
		bookings:   bookings,
		log:        log,
	}

	mux.HandleFunc(TaskBookingReminder, w.handleBookingReminder)

	return w, nil
}

// handleBookingReminder fires when a booking's reminder comes due. A booking
// that was cancelled or rescheduled since the task was enqueued is skipped.
func (w *Worker) handleBookingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBookingReminderPayload(task)
	if err != nil {
		return err
	}

	quoteID, err := uuid.Parse(payload.QuoteID)
	if err != nil {
		return err
	}

	booking, err := w.bookings.GetActiveByQuote(ctx, quoteID)
	if err != nil {
		// A cancelled booking has no active row; that is a skip, not a
		// failure asynq should retry.
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			return nil
		}
		return err
	}
	if booking == nil || booking.Status != bookingsrepo.StatusConfirmed || booking.ScheduledAt == nil {
		return nil
	}
	if booking.ScheduledAt.Before(time.Now()) {
		return nil
	}

	return w.reminders.QueueBookingReminder(ctx, quoteID, *booking.ScheduledAt)
}

// Run serves tasks and polls the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go w.pollOutbox(ctx)

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) pollOutbox(ctx context.Context) {
	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		delivered, err := w.dispatcher.Dispatch(ctx, outboxBatchSize)
		if err != nil {
			w.log.Warn("outbox dispatch failed", "error", err)
			continue
		}
		if delivered > 0 {
			w.log.Info("notifications delivered", "count", delivered)
		}
	}
}
