// Package notification turns domain events into queued notifications.
// It subscribes to the event bus and writes outbox rows; actual delivery
// happens asynchronously in the scheduler worker. Domain modules never
// talk to email providers directly.
package notification

import (
	"context"
	"fmt"
	"time"

	cleanertransport "cleanbroker/internal/cleaners/transport"
	"cleanbroker/internal/events"
	"cleanbroker/internal/notification/outbox"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/platform/config"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
)

// QuoteReader supplies customer details the events do not carry.
// Satisfied by the quotes repository.
type QuoteReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*quotesrepo.QuoteRequest, error)
}

// CleanerReader supplies cleaner details for assignment offers.
// Satisfied by the cleaners service.
type CleanerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*cleanertransport.CleanerResponse, error)
}

// OutboxWriter queues notifications. Satisfied by the outbox repository.
type OutboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// Module wires event subscriptions to the notification outbox.
type Module struct {
	outbox   OutboxWriter
	quotes   QuoteReader
	cleaners CleanerReader
	baseURL  string
	log      *logger.Logger
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(
	bus events.Bus,
	outboxRepo OutboxWriter,
	quotes QuoteReader,
	cleaners CleanerReader,
	cfg config.NotificationConfig,
	log *logger.Logger,
) *Module {
	m := &Module{
		outbox:   outboxRepo,
		quotes:   quotes,
		cleaners: cleaners,
		baseURL:  cfg.GetAppBaseURL(),
		log:      log,
	}
	m.subscribe(bus)
	return m
}

func (m *Module) subscribe(bus events.Bus) {
	bus.Subscribe(events.QuoteSubmitted{}.EventName(), events.HandlerFunc(m.onQuoteSubmitted))
	bus.Subscribe(events.QuotePriced{}.EventName(), events.HandlerFunc(m.onQuotePriced))
	bus.Subscribe(events.QuoteAccepted{}.EventName(), events.HandlerFunc(m.onQuoteAccepted))
	bus.Subscribe(events.QuotePaid{}.EventName(), events.HandlerFunc(m.onQuotePaid))
	bus.Subscribe(events.QuoteScheduled{}.EventName(), events.HandlerFunc(m.onQuoteScheduled))
	bus.Subscribe(events.AssignmentCreated{}.EventName(), events.HandlerFunc(m.onAssignmentCreated))
}

func (m *Module) onQuoteSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateQuoteReceived, quote.CustomerEmail, quoteReceivedPayload{
		CustomerName: quote.CustomerName,
	})
}

func (m *Module) onQuotePriced(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuotePriced)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateQuoteReady, quote.CustomerEmail, quoteReadyPayload{
		CustomerName: quote.CustomerName,
		TotalCents:   e.TotalCents,
		QuoteURL:     fmt.Sprintf("%s/quotes/%s", m.baseURL, e.QuoteID),
	})
}

func (m *Module) onQuoteAccepted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteAccepted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateQuoteAccepted, quote.CustomerEmail, quoteAcceptedPayload{
		CustomerName: quote.CustomerName,
		TotalCents:   e.TotalCents,
	})
}

func (m *Module) onQuotePaid(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuotePaid)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templatePaymentReceived, quote.CustomerEmail, paymentReceivedPayload{
		CustomerName: quote.CustomerName,
		AmountCents:  e.AmountCents,
	})
}

func (m *Module) onQuoteScheduled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteScheduled)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateBookingScheduled, quote.CustomerEmail, bookingScheduledPayload{
		CustomerName:  quote.CustomerName,
		ScheduledDate: e.ScheduledAt.Format("Monday, January 2, 2006 at 15:04"),
		Address:       quote.Address,
	})
}

func (m *Module) onAssignmentCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AssignmentCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	quote, err := m.quotes.GetByID(ctx, e.QuoteID)
	if err != nil {
		return err
	}
	cleaner, err := m.cleaners.GetByID(ctx, e.CleanerID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateAssignmentOffer, cleaner.Email, assignmentOfferPayload{
		CleanerName: cleaner.Name,
		Address:     quote.Address,
		PayoutCents: e.PayoutCents,
	})
}

// QueueBookingReminder queues a reminder email for an upcoming booking.
// Called by the scheduler worker, not by an event subscription.
func (m *Module) QueueBookingReminder(ctx context.Context, quoteID uuid.UUID, scheduledAt time.Time) error {
	quote, err := m.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, templateBookingReminder, quote.CustomerEmail, bookingScheduledPayload{
		CustomerName:  quote.CustomerName,
		ScheduledDate: scheduledAt.Format("Monday, January 2, 2006 at 15:04"),
		Address:       quote.Address,
	})
}

func (m *Module) enqueue(ctx context.Context, template, recipient string, payload any) error {
	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Template:  template,
		Recipient: recipient,
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	if m.log != nil {
		m.log.Debug("notification queued", "outboxId", id.String(), "template", template)
	}
	return nil
}
