// Package service implements booking management driven by quote transitions.
package service

import (
	"context"
	"errors"
	"time"

	"cleanbroker/internal/bookings/repository"
	"cleanbroker/platform/apperr"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the booking service needs. Ensure is
// strengthen-only: an existing booking's status never moves backwards.
type Store interface {
	Ensure(ctx context.Context, quoteID uuid.UUID, status repository.Status) error
	GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*repository.Booking, error)
	SetSchedule(ctx context.Context, quoteID uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, quoteID uuid.UUID, status repository.Status) error
}

// Service provides booking operations. It never creates a second active
// booking for a quote; every entry point reuses the existing row.
type Service struct {
	store Store
	log   *logger.Logger
}

// New creates a new bookings service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// EnsurePending guarantees an active booking exists after quote acceptance.
// An existing booking keeps its status: a payment racing ahead may already
// have confirmed it, and acceptance must not downgrade that.
func (s *Service) EnsurePending(ctx context.Context, quoteID uuid.UUID) error {
	return s.store.Ensure(ctx, quoteID, repository.StatusPendingSchedule)
}

// EnsureConfirmed guarantees an active booking after payment reconciliation:
// created confirmed if absent, upgraded from pending_schedule if present. A
// booking that has already progressed past confirmed keeps its status; a
// late settlement must not demote an in_progress or completed job.
func (s *Service) EnsureConfirmed(ctx context.Context, quoteID uuid.UUID) error {
	return s.store.Ensure(ctx, quoteID, repository.StatusConfirmed)
}

// Schedule stores the confirmed service date on the quote's booking.
func (s *Service) Schedule(ctx context.Context, quoteID uuid.UUID, at time.Time) error {
	return s.store.SetSchedule(ctx, quoteID, at)
}

// MarkInProgress moves the quote's booking to in_progress when the assigned
// cleaner starts the job.
func (s *Service) MarkInProgress(ctx context.Context, quoteID uuid.UUID) error {
	return s.store.UpdateStatus(ctx, quoteID, repository.StatusInProgress)
}

// MarkCompleted moves the quote's booking to completed.
func (s *Service) MarkCompleted(ctx context.Context, quoteID uuid.UUID) error {
	return s.store.UpdateStatus(ctx, quoteID, repository.StatusCompleted)
}

// Cancel cancels the quote's active booking if one exists. A missing booking
// is not an error here; a declined quote may never have had one.
func (s *Service) Cancel(ctx context.Context, quoteID uuid.UUID) error {
	err := s.store.UpdateStatus(ctx, quoteID, repository.StatusCancelled)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			return nil
		}
		return err
	}
	return nil
}

// GetActiveByQuote returns the quote's non-cancelled booking.
func (s *Service) GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*repository.Booking, error) {
	return s.store.GetActiveByQuote(ctx, quoteID)
}
