// Package repository provides database access for cleaner assignments.
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

// Status is the lifecycle state of a cleaner assignment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the assignment still binds the quote to the
// cleaner. A quote may carry at most one active assignment.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusInProgress
}

// Terminal reports whether no further cleaner transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus is the payout state of an assignment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
)

// Assignment is the database model for a cleaner assignment. Superseded
// assignments are kept for history, never deleted.
type Assignment struct {
	ID        uuid.UUID `db:"id"`
	QuoteID   uuid.UUID `db:"quote_id"`
	CleanerID uuid.UUID `db:"cleaner_id"`
	Status    Status    `db:"status"`

	// PaymentAmountCents is the cleaner payout, independent of the
	// customer-facing total. Immutable once PaymentStatus is paid.
	PaymentAmountCents int64         `db:"payment_amount_cents"`
	PaymentStatus      PaymentStatus `db:"payment_status"`

	AdminNotes   *string `db:"admin_notes"`
	CleanerNotes *string `db:"cleaner_notes"`

	AssignedAt  time.Time  `db:"assigned_at"`
	AcceptedAt  *time.Time `db:"accepted_at"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const assignmentNotFoundMsg = "assignment not found"

const assignmentColumns = `
	id, quote_id, cleaner_id, status, payment_amount_cents, payment_status,
	admin_notes, cleaner_notes, assigned_at, accepted_at, completed_at, created_at, updated_at`

// Repository provides database operations for cleaner assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new assignments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an assignment.
func (r *Repository) Create(ctx context.Context, a *Assignment) error {
	query := `
		INSERT INTO cleaner_assignments (
			id, quote_id, cleaner_id, status, payment_amount_cents, payment_status,
			admin_notes, cleaner_notes, assigned_at, accepted_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := r.pool.Exec(ctx, query,
		a.ID, a.QuoteID, a.CleanerID, a.Status, a.PaymentAmountCents, a.PaymentStatus,
		a.AdminNotes, a.CleanerNotes, a.AssignedAt, a.AcceptedAt, a.CompletedAt, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return apperr.Storage("assignments.create", err)
	}
	return nil
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(
		&a.ID, &a.QuoteID, &a.CleanerID, &a.Status, &a.PaymentAmountCents, &a.PaymentStatus,
		&a.AdminNotes, &a.CleanerNotes, &a.AssignedAt, &a.AcceptedAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an assignment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM cleaner_assignments WHERE id = $1`
	a, err := scanAssignment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(assignmentNotFoundMsg)
		}
		return nil, apperr.Storage("assignments.get", err)
	}
	return a, nil
}

// GetActiveByQuote returns the quote's active assignment, if any.
// A nil assignment with a nil error means no active assignment exists.
func (r *Repository) GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM cleaner_assignments
		WHERE quote_id = $1 AND status IN ('pending', 'accepted', 'in_progress')`

	a, err := scanAssignment(r.pool.QueryRow(ctx, query, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage("assignments.get_active", err)
	}
	return a, nil
}

// HasCompletedByQuote reports whether the quote has a completed assignment.
func (r *Repository) HasCompletedByQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM cleaner_assignments WHERE quote_id = $1 AND status = 'completed')`
	if err := r.pool.QueryRow(ctx, query, quoteID).Scan(&exists); err != nil {
		return false, apperr.Storage("assignments.has_completed", err)
	}
	return exists, nil
}

// UpdateStatus performs a conditional assignment status transition with the
// accompanying timestamps and optional cleaner notes.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, cleanerNotes *string) error {
	now := time.Now()
	var acceptedAt, completedAt *time.Time
	if next == StatusAccepted {
		acceptedAt = &now
	}
	if next == StatusCompleted {
		completedAt = &now
	}

	query := `
		UPDATE cleaner_assignments SET
			status = $3,
			accepted_at = COALESCE($4, accepted_at),
			completed_at = COALESCE($5, completed_at),
			cleaner_notes = COALESCE($6, cleaner_notes),
			updated_at = $7
		WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query, id, expected, next, acceptedAt, completedAt, cleanerNotes, now)
	if err != nil {
		return apperr.Storage("assignments.update_status", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, id)
	}
	return nil
}

// Cancel forces an assignment to cancelled from any non-terminal status.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE cleaner_assignments SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'accepted', 'in_progress')`

	result, err := r.pool.Exec(ctx, query, id, StatusCancelled, time.Now())
	if err != nil {
		return apperr.Storage("assignments.cancel", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, id)
	}
	return nil
}

// UpdatePaymentStatus advances the payout status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	query := `UPDATE cleaner_assignments SET payment_status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return apperr.Storage("assignments.update_payment_status", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(assignmentNotFoundMsg)
	}
	return nil
}

// UpdatePayout changes the payout amount. The write is conditional on the
// payout not being paid yet; the amount is immutable afterwards.
func (r *Repository) UpdatePayout(ctx context.Context, id uuid.UUID, amountCents int64) error {
	query := `
		UPDATE cleaner_assignments SET payment_amount_cents = $2, updated_at = $3
		WHERE id = $1 AND payment_status <> 'paid'`

	result, err := r.pool.Exec(ctx, query, id, amountCents, time.Now())
	if err != nil {
		return apperr.Storage("assignments.update_payout", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.PreconditionFailed("payout amount is immutable once paid")
	}
	return nil
}

// ListByCleaner returns all assignments for a cleaner, newest first.
func (r *Repository) ListByCleaner(ctx context.Context, cleanerID uuid.UUID) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM cleaner_assignments WHERE cleaner_id = $1 ORDER BY assigned_at DESC`
	return r.list(ctx, query, cleanerID)
}

// ListByQuote returns the assignment history of a quote, newest first.
func (r *Repository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM cleaner_assignments WHERE quote_id = $1 ORDER BY assigned_at DESC`
	return r.list(ctx, query, quoteID)
}

func (r *Repository) list(ctx context.Context, query string, arg interface{}) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, apperr.Storage("assignments.list", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, apperr.Storage("assignments.list", err)
		}
		assignments = append(assignments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("assignments.list", err)
	}
	return assignments, nil
}

func (r *Repository) conditionalFailure(ctx context.Context, id uuid.UUID) error {
	var status Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM cleaner_assignments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(assignmentNotFoundMsg)
	}
	if err != nil {
		return apperr.Storage("assignments.reread", err)
	}
	return apperr.InvalidTransition("assignment is in status " + string(status))
}
