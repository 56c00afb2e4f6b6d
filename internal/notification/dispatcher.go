package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cleanbroker/internal/email"
	"cleanbroker/internal/notification/outbox"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// maxAttempts is the delivery cap before a row is parked as failed.
	maxAttempts  = 5
	retryBackoff = time.Minute

	// deliveryConcurrency bounds parallel SMTP sends per batch.
	deliveryConcurrency = 5

	// staleProcessingAfter is how long a row may sit in processing before
	// it is assumed orphaned by a dead worker and requeued.
	staleProcessingAfter = 5 * time.Minute
)

// OutboxClaimer is the dispatcher's view of the outbox repository.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Dispatcher drains the notification outbox. It runs inside the scheduler
// worker, not the API process.
type Dispatcher struct {
	outbox OutboxClaimer
	sender email.Sender
	log    *logger.Logger
}

// NewDispatcher creates a new outbox dispatcher.
func NewDispatcher(outboxRepo OutboxClaimer, sender email.Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{outbox: outboxRepo, sender: sender, log: log}
}

// Dispatch claims up to limit due notifications and delivers them.
// It returns the number delivered. A single bad row never aborts the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) (int, error) {
	if n, err := d.outbox.ReclaimStale(ctx, staleProcessingAfter); err != nil {
		if d.log != nil {
			d.log.Warn("reclaim stale notifications", "error", err)
		}
	} else if n > 0 && d.log != nil {
		d.log.Info("requeued orphaned notifications", "count", n)
	}

	records, err := d.outbox.ClaimPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	var deliveredMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deliveryConcurrency)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := d.deliver(gctx, rec); err != nil {
				d.retryOrFail(gctx, rec, err)
				return nil
			}
			if err := d.outbox.MarkSucceeded(gctx, rec.ID); err != nil && d.log != nil {
				d.log.Error("mark notification succeeded", "outboxId", rec.ID.String(), "error", err)
			}
			deliveredMu.Lock()
			delivered++
			deliveredMu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Template {
	case templateQuoteReceived:
		var p quoteReceivedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendQuoteReceivedEmail(ctx, rec.Recipient, p.CustomerName)

	case templateQuoteReady:
		var p quoteReadyPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendQuoteReadyEmail(ctx, rec.Recipient, p.CustomerName, p.TotalCents, p.QuoteURL)

	case templateQuoteAccepted:
		var p quoteAcceptedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendQuoteAcceptedEmail(ctx, rec.Recipient, p.CustomerName, p.TotalCents)

	case templatePaymentReceived:
		var p paymentReceivedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendPaymentReceivedEmail(ctx, rec.Recipient, p.CustomerName, p.AmountCents)

	case templateBookingScheduled:
		var p bookingScheduledPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendBookingScheduledEmail(ctx, rec.Recipient, p.CustomerName, p.ScheduledDate, p.Address)

	case templateBookingReminder:
		var p bookingScheduledPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendBookingReminderEmail(ctx, rec.Recipient, p.CustomerName, p.ScheduledDate, p.Address)

	case templateAssignmentOffer:
		var p assignmentOfferPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", rec.Template, err)
		}
		return d.sender.SendAssignmentOfferEmail(ctx, rec.Recipient, p.CleanerName, p.Address, p.PayoutCents)

	default:
		return fmt.Errorf("unknown notification template %q", rec.Template)
	}
}

func (d *Dispatcher) retryOrFail(ctx context.Context, rec outbox.Record, cause error) {
	if d.log != nil {
		d.log.Warn("notification delivery failed",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempts", rec.Attempts,
			"error", cause,
		)
	}

	if rec.Attempts >= maxAttempts {
		if err := d.outbox.MarkFailed(ctx, rec.ID, cause.Error()); err != nil && d.log != nil {
			d.log.Error("mark notification failed", "outboxId", rec.ID.String(), "error", err)
		}
		return
	}

	runAt := time.Now().Add(retryBackoff * time.Duration(rec.Attempts))
	if err := d.outbox.MarkPending(ctx, rec.ID, runAt, cause.Error()); err != nil && d.log != nil {
		d.log.Error("requeue notification", "outboxId", rec.ID.String(), "error", err)
	}
}
