package service

import (
	"context"
	"testing"
	"time"

	"cleanbroker/internal/bookings/repository"
	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
)

// fakeStore holds at most one active booking per quote and applies the
// repository's upsert contract: Ensure creates when absent and only ever
// strengthens pending_schedule in place.
type fakeStore struct {
	bookings map[uuid.UUID]*repository.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[uuid.UUID]*repository.Booking)}
}

func (f *fakeStore) active(quoteID uuid.UUID) *repository.Booking {
	b, ok := f.bookings[quoteID]
	if !ok || b.Status == repository.StatusCancelled {
		return nil
	}
	return b
}

func (f *fakeStore) Ensure(_ context.Context, quoteID uuid.UUID, status repository.Status) error {
	if b := f.active(quoteID); b != nil {
		if b.Status == repository.StatusPendingSchedule && b.Status != status {
			b.Status = status
		}
		return nil
	}
	f.bookings[quoteID] = &repository.Booking{
		ID:      uuid.New(),
		QuoteID: quoteID,
		Status:  status,
	}
	return nil
}

func (f *fakeStore) GetActiveByQuote(_ context.Context, quoteID uuid.UUID) (*repository.Booking, error) {
	b := f.active(quoteID)
	if b == nil {
		return nil, apperr.NotFound("booking not found")
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) SetSchedule(_ context.Context, quoteID uuid.UUID, at time.Time) error {
	b := f.active(quoteID)
	if b == nil {
		return apperr.NotFound("booking not found")
	}
	b.ScheduledAt = &at
	b.Status = repository.StatusConfirmed
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, quoteID uuid.UUID, status repository.Status) error {
	b := f.active(quoteID)
	if b == nil {
		return apperr.NotFound("booking not found")
	}
	b.Status = status
	return nil
}

func TestEnsureConfirmedUpgradesPendingBooking(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil)
	quoteID := uuid.New()
	ctx := context.Background()

	if err := svc.EnsurePending(ctx, quoteID); err != nil {
		t.Fatalf("EnsurePending: %v", err)
	}
	if err := svc.EnsureConfirmed(ctx, quoteID); err != nil {
		t.Fatalf("EnsureConfirmed: %v", err)
	}

	b, err := svc.GetActiveByQuote(ctx, quoteID)
	if err != nil {
		t.Fatalf("GetActiveByQuote: %v", err)
	}
	if b.Status != repository.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", b.Status)
	}
}

func TestEnsurePendingDoesNotDowngradeConfirmedBooking(t *testing.T) {
	// Payment can race ahead of the acceptance flow; a late EnsurePending
	// must leave the already-confirmed booking alone.
	store := newFakeStore()
	svc := New(store, nil)
	quoteID := uuid.New()
	ctx := context.Background()

	if err := svc.EnsureConfirmed(ctx, quoteID); err != nil {
		t.Fatalf("EnsureConfirmed: %v", err)
	}
	if err := svc.EnsurePending(ctx, quoteID); err != nil {
		t.Fatalf("EnsurePending: %v", err)
	}

	b, err := svc.GetActiveByQuote(ctx, quoteID)
	if err != nil {
		t.Fatalf("GetActiveByQuote: %v", err)
	}
	if b.Status != repository.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", b.Status)
	}
}

func TestEnsureConfirmedPreservesJobAlreadyUnderway(t *testing.T) {
	// A second settlement against an already-scheduled quote re-runs
	// EnsureConfirmed; a booking the cleaner has started or finished must
	// not fall back to confirmed.
	for _, status := range []repository.Status{repository.StatusInProgress, repository.StatusCompleted} {
		store := newFakeStore()
		svc := New(store, nil)
		quoteID := uuid.New()
		ctx := context.Background()

		if err := svc.EnsureConfirmed(ctx, quoteID); err != nil {
			t.Fatalf("EnsureConfirmed: %v", err)
		}
		if err := store.UpdateStatus(ctx, quoteID, status); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if err := svc.EnsureConfirmed(ctx, quoteID); err != nil {
			t.Fatalf("late EnsureConfirmed: %v", err)
		}

		b, err := svc.GetActiveByQuote(ctx, quoteID)
		if err != nil {
			t.Fatalf("GetActiveByQuote: %v", err)
		}
		if b.Status != status {
			t.Fatalf("expected %s preserved, got %s", status, b.Status)
		}
	}
}

func TestCancelSwallowsMissingBooking(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil)

	if err := svc.Cancel(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Cancel on absent booking: %v", err)
	}
}
