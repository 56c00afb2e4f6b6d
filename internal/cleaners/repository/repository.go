// Package repository provides database access for cleaner accounts.
package repository

import (
	"context"
	"errors"
	"time"

	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the review state of a cleaner account. Only approved cleaners
// may receive assignments.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusSuspended     Status = "suspended"
)

// Cleaner is the database model for a cleaner account. The ID is the
// authenticated user's ID.
type Cleaner struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	Status    Status    `db:"status"`
	Rating    *float64  `db:"rating"`
	Bio       *string   `db:"bio"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const cleanerNotFoundMsg = "cleaner not found"

// Repository provides database operations for cleaner accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new cleaners repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a cleaner account.
func (r *Repository) Create(ctx context.Context, cleaner *Cleaner) error {
	query := `
		INSERT INTO cleaners (id, name, email, phone, status, rating, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := r.pool.Exec(ctx, query,
		cleaner.ID, cleaner.Name, cleaner.Email, cleaner.Phone,
		cleaner.Status, cleaner.Rating, cleaner.Bio, cleaner.CreatedAt, cleaner.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("cleaner already registered")
		}
		return apperr.Storage("cleaners.create", err)
	}
	return nil
}

// GetByID retrieves a cleaner account.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Cleaner, error) {
	query := `
		SELECT id, name, email, phone, status, rating, bio, created_at, updated_at
		FROM cleaners WHERE id = $1`

	var c Cleaner
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.Rating, &c.Bio, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(cleanerNotFoundMsg)
		}
		return nil, apperr.Storage("cleaners.get", err)
	}
	return &c, nil
}

// UpdateStatus changes a cleaner's review status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE cleaners SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return apperr.Storage("cleaners.update_status", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(cleanerNotFoundMsg)
	}
	return nil
}

// List retrieves cleaner accounts, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *Status) ([]Cleaner, error) {
	var statusParam interface{}
	if status != nil {
		statusParam = string(*status)
	}
	query := `
		SELECT id, name, email, phone, status, rating, bio, created_at, updated_at
		FROM cleaners
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, statusParam)
	if err != nil {
		return nil, apperr.Storage("cleaners.list", err)
	}
	defer rows.Close()

	var cleaners []Cleaner
	for rows.Next() {
		var c Cleaner
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.Rating, &c.Bio, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Storage("cleaners.list", err)
		}
		cleaners = append(cleaners, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("cleaners.list", err)
	}
	return cleaners, nil
}
