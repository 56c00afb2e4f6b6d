// Package service reconciles payment provider webhooks with quotes.
package service

import (
	"context"
	"time"

	"cleanbroker/internal/events"
	"cleanbroker/internal/payments/repository"
	"cleanbroker/internal/payments/transport"
	"cleanbroker/internal/quotes/domain"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
)

// Store is the transaction ledger the service appends to.
type Store interface {
	Create(ctx context.Context, t *repository.Transaction) (bool, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*repository.Transaction, error)
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]repository.Transaction, error)
}

// QuoteMarker is the narrow view of the quotes store the reconciler needs.
// Satisfied by the quotes repository.
type QuoteMarker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*quotesrepo.QuoteRequest, error)
	MarkPaid(ctx context.Context, quoteID uuid.UUID) error
}

// BookingConfirmer upgrades the quote's booking on a confirmed payment.
type BookingConfirmer interface {
	EnsureConfirmed(ctx context.Context, quoteID uuid.UUID) error
}

// Service records provider transactions and moves quotes to paid.
type Service struct {
	store    Store
	quotes   QuoteMarker
	bookings BookingConfirmer
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new payments service.
func New(store Store, quotes QuoteMarker, bookings BookingConfirmer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		quotes:   quotes,
		bookings: bookings,
		bus:      bus,
		log:      log,
	}
}

// Record processes one webhook delivery. The external reference is the
// idempotency key: a reference seen before adds nothing to the ledger, but a
// succeeded duplicate still re-runs the settlement steps — the first delivery
// may have died between the insert and the status transition, and redelivery
// must converge the quote rather than acknowledge a stranded state.
//
// Non-succeeded outcomes are appended to the ledger and never touch the
// quote. An amount differing from the quote total is recorded and logged,
// not rejected; counter-offers can change the total between checkout and
// settlement.
func (s *Service) Record(ctx context.Context, req transport.WebhookRequest) (*transport.WebhookResponse, error) {
	quote, err := s.quotes.GetByID(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}

	inserted, err := s.store.Create(ctx, &repository.Transaction{
		ID:            uuid.New(),
		QuoteID:       quote.ID,
		ExternalRef:   req.ExternalRef,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Status:        repository.Status(req.Status),
		CustomerName:  quote.CustomerName,
		CustomerEmail: quote.CustomerEmail,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		existing, err := s.store.GetByExternalRef(ctx, req.ExternalRef)
		if err != nil {
			return nil, err
		}
		if existing.Status == repository.StatusSucceeded {
			if err := s.settle(ctx, quote, existing.AmountCents, existing.Currency, existing.ExternalRef); err != nil {
				return nil, err
			}
		}
		return &transport.WebhookResponse{Duplicate: true}, nil
	}

	if repository.Status(req.Status) != repository.StatusSucceeded {
		if s.log != nil {
			s.log.Info("non-success payment recorded",
				"quoteId", quote.ID.String(),
				"externalRef", req.ExternalRef,
				"status", req.Status,
			)
		}
		return &transport.WebhookResponse{}, nil
	}

	if req.AmountCents != quote.TotalPriceCents && s.log != nil {
		s.log.Warn("payment amount differs from quote total",
			"quoteId", quote.ID.String(),
			"externalRef", req.ExternalRef,
			"paidCents", req.AmountCents,
			"quotedCents", quote.TotalPriceCents,
		)
	}

	if err := s.settle(ctx, quote, req.AmountCents, req.Currency, req.ExternalRef); err != nil {
		return nil, err
	}

	return &transport.WebhookResponse{}, nil
}

// settle moves the quote to paid and confirms its booking. Every step is
// idempotent so it may run again on redelivery: a quote already at paid or
// beyond keeps its status (late settlement of a scheduled or completed job
// must not drag it backwards), and QuotePaid fires only when the status
// actually advanced.
func (s *Service) settle(ctx context.Context, quote *quotesrepo.QuoteRequest, amountCents int64, currency, externalRef string) error {
	markedPaid := false
	if !quote.Status.AtLeastPaid() {
		cmd := domain.PaymentSuccess{
			ExternalRef: externalRef,
			AmountCents: amountCents,
			Currency:    currency,
		}
		if _, err := domain.Apply(quote.Status, cmd, domain.ActorSystem); err != nil {
			if s.log != nil {
				s.log.TransitionRejected(quote.ID.String(), string(quote.Status), cmd.Event(), err)
			}
			return err
		}
		if err := s.quotes.MarkPaid(ctx, quote.ID); err != nil {
			return err
		}
		markedPaid = true
	}

	if err := s.bookings.EnsureConfirmed(ctx, quote.ID); err != nil {
		return err
	}

	if markedPaid && s.bus != nil {
		s.bus.Publish(ctx, events.QuotePaid{
			BaseEvent:     events.NewBaseEvent(),
			QuoteID:       quote.ID,
			CustomerID:    quote.CustomerID,
			CustomerEmail: quote.CustomerEmail,
			AmountCents:   amountCents,
			Reference:     externalRef,
		})
	}
	return nil
}

// ListByQuote returns the transaction history of a quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]transport.TransactionResponse, error) {
	transactions, err := s.store.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.TransactionResponse, len(transactions))
	for i, t := range transactions {
		responses[i] = transport.TransactionResponse{
			ID:          t.ID,
			QuoteID:     t.QuoteID,
			ExternalRef: t.ExternalRef,
			AmountCents: t.AmountCents,
			Currency:    t.Currency,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt,
		}
	}
	return responses, nil
}
