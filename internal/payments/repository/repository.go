// Package repository persists payment transactions.
//
// The transactions table is an append-only ledger. Rows are never updated or
// deleted; the unique external_ref is what makes webhook redelivery safe.
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

// Status is the outcome recorded for a transaction.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusRefunded  Status = "refunded"
)

// Transaction is one payment-provider event. Customer fields are a snapshot
// taken at payment time; the quote may change after.
type Transaction struct {
	ID          uuid.UUID `db:"id"`
	QuoteID     uuid.UUID `db:"quote_id"`
	ExternalRef string    `db:"external_ref"`
	AmountCents int64     `db:"amount_cents"`
	Currency    string    `db:"currency"`
	Status      Status    `db:"status"`

	CustomerName  string `db:"customer_name"`
	CustomerEmail string `db:"customer_email"`

	CreatedAt time.Time `db:"created_at"`
}

// Repository provides access to the transactions ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new payments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transactionColumns = `
	id, quote_id, external_ref, amount_cents, currency, status,
	customer_name, customer_email, created_at`

// Create appends a transaction. It reports false without error when a row
// with the same external reference already exists.
func (r *Repository) Create(ctx context.Context, t *Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (
			id, quote_id, external_ref, amount_cents, currency, status,
			customer_name, customer_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_ref) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		t.ID, t.QuoteID, t.ExternalRef, t.AmountCents, t.Currency, t.Status,
		t.CustomerName, t.CustomerEmail, t.CreatedAt,
	)
	if err != nil {
		return false, apperr.Storage("payments.Create", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByExternalRef fetches a transaction by its provider reference.
func (r *Repository) GetByExternalRef(ctx context.Context, externalRef string) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_ref = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, externalRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, apperr.Storage("payments.GetByExternalRef", err)
	}
	return t, nil
}

// ListByQuote returns all transactions recorded for a quote, newest first.
func (r *Repository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE quote_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, quoteID)
	if err != nil {
		return nil, apperr.Storage("payments.ListByQuote", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.QuoteID, &t.ExternalRef, &t.AmountCents, &t.Currency, &t.Status,
			&t.CustomerName, &t.CustomerEmail, &t.CreatedAt,
		); err != nil {
			return nil, apperr.Storage("payments.ListByQuote", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("payments.ListByQuote", err)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.QuoteID, &t.ExternalRef, &t.AmountCents, &t.Currency, &t.Status,
		&t.CustomerName, &t.CustomerEmail, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
