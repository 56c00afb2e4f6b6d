// Package repository provides database access for bookings.
package repository

import (
	"context"
	"errors"
	"time"

	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPendingSchedule Status = "pending_schedule"
	StatusConfirmed       Status = "confirmed"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// Booking is the database model for a booking. A partial unique index on
// quote_id (where status <> 'cancelled') enforces at most one non-cancelled
// booking per quote at the store level.
type Booking struct {
	ID          uuid.UUID  `db:"id"`
	QuoteID     uuid.UUID  `db:"quote_id"`
	Status      Status     `db:"status"`
	ScheduledAt *time.Time `db:"scheduled_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Repository provides database operations for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new bookings repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ensure upserts the active booking for a quote. When no active booking
// exists one is created with the given status; when one exists it is updated
// in place, never duplicated, and its status is only ever strengthened: a
// pending_schedule row may advance to confirmed, but a booking that payment,
// scheduling, or the cleaner already moved further is left untouched.
func (r *Repository) Ensure(ctx context.Context, quoteID uuid.UUID, status Status) error {
	query := `
		INSERT INTO bookings (id, quote_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (quote_id) WHERE status <> 'cancelled'
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		WHERE bookings.status = 'pending_schedule' AND bookings.status <> EXCLUDED.status`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), quoteID, status, time.Now()); err != nil {
		return apperr.Storage("bookings.ensure", err)
	}
	return nil
}

// GetActiveByQuote returns the quote's non-cancelled booking.
func (r *Repository) GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*Booking, error) {
	query := `
		SELECT id, quote_id, status, scheduled_at, created_at, updated_at
		FROM bookings WHERE quote_id = $1 AND status <> 'cancelled'`

	var b Booking
	err := r.pool.QueryRow(ctx, query, quoteID).
		Scan(&b.ID, &b.QuoteID, &b.Status, &b.ScheduledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, apperr.Storage("bookings.get", err)
	}
	return &b, nil
}

// SetSchedule stores the confirmed service date on the active booking and
// moves it to confirmed.
func (r *Repository) SetSchedule(ctx context.Context, quoteID uuid.UUID, at time.Time) error {
	query := `
		UPDATE bookings SET scheduled_at = $2, status = $3, updated_at = $4
		WHERE quote_id = $1 AND status <> 'cancelled'`

	result, err := r.pool.Exec(ctx, query, quoteID, at, StatusConfirmed, time.Now())
	if err != nil {
		return apperr.Storage("bookings.schedule", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}

// UpdateStatus moves the active booking to the given status.
func (r *Repository) UpdateStatus(ctx context.Context, quoteID uuid.UUID, status Status) error {
	query := `
		UPDATE bookings SET status = $2, updated_at = $3
		WHERE quote_id = $1 AND status <> 'cancelled'`

	result, err := r.pool.Exec(ctx, query, quoteID, status, time.Now())
	if err != nil {
		return apperr.Storage("bookings.update_status", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}
