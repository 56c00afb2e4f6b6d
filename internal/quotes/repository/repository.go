// Package repository provides database access for quote requests and their
// additional-service ledger.
package repository

import (
	"context"
	"errors"
	"time"

	"cleanbroker/internal/quotes/domain"
	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// QuoteRequest is the database model for a quote request.
type QuoteRequest struct {
	ID            uuid.UUID `db:"id"`
	CustomerID    uuid.UUID `db:"customer_id"`
	CustomerName  string    `db:"customer_name"`
	CustomerEmail string    `db:"customer_email"`
	CustomerPhone *string   `db:"customer_phone"`
	Address       string    `db:"address"`

	PropertyType  string             `db:"property_type"`
	Bedrooms      int                `db:"bedrooms"`
	Bathrooms     int                `db:"bathrooms"`
	SquareFootage int                `db:"square_footage"`
	ServiceTier   domain.ServiceTier `db:"service_tier"`
	Frequency     string             `db:"frequency"`
	HasPets       bool               `db:"has_pets"`

	ProposedDate1 *time.Time `db:"proposed_date_1"`
	ProposedDate2 *time.Time `db:"proposed_date_2"`
	ProposedDate3 *time.Time `db:"proposed_date_3"`

	SpecialInstructions *string `db:"special_instructions"`

	Status domain.Status `db:"status"`

	// Prices are computed server-side, never client-supplied as final truth.
	BasePriceCents       int64  `db:"base_price_cents"`
	AdditionalPriceCents int64  `db:"additional_price_cents"`
	TotalPriceCents      int64  `db:"total_price_cents"`
	SuggestedPriceCents  *int64 `db:"suggested_price_cents"`

	AdminNotes    *string `db:"admin_notes"`
	CustomerNotes *string `db:"customer_notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Selection is one additional-service line with its price snapshotted at
// selection time. Catalog price changes never affect existing quotes.
type Selection struct {
	ID         uuid.UUID `db:"id"`
	QuoteID    uuid.UUID `db:"quote_id"`
	ServiceKey string    `db:"service_key"`
	PriceCents int64     `db:"price_cents"`
	CreatedAt  time.Time `db:"created_at"`
}

// ListParams contains parameters for listing quote requests.
type ListParams struct {
	Status     *domain.Status
	CustomerID *uuid.UUID
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// ListResult contains the paginated result of listing quote requests.
type ListResult struct {
	Items      []QuoteRequest
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Pricing carries the recomputed amounts written when an admin prices a quote.
type Pricing struct {
	BasePriceCents       int64
	AdditionalPriceCents int64
	TotalPriceCents      int64
	AdminNotes           *string
	Selections           []Selection
}

// ── Repository ────────────────────────────────────────────────────────────────

const quoteNotFoundMsg = "quote not found"

// Repository provides database operations for quote requests.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithSelections inserts a quote request and its initial additional
// service selections in a single transaction.
func (r *Repository) CreateWithSelections(ctx context.Context, quote *QuoteRequest, selections []Selection) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Storage("quotes.create", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quote_requests (
			id, customer_id, customer_name, customer_email, customer_phone, address,
			property_type, bedrooms, bathrooms, square_footage, service_tier, frequency, has_pets,
			proposed_date_1, proposed_date_2, proposed_date_3, special_instructions,
			status, base_price_cents, additional_price_cents, total_price_cents,
			suggested_price_cents, admin_notes, customer_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	if _, err := tx.Exec(ctx, query,
		quote.ID, quote.CustomerID, quote.CustomerName, quote.CustomerEmail, quote.CustomerPhone, quote.Address,
		quote.PropertyType, quote.Bedrooms, quote.Bathrooms, quote.SquareFootage, quote.ServiceTier, quote.Frequency, quote.HasPets,
		quote.ProposedDate1, quote.ProposedDate2, quote.ProposedDate3, quote.SpecialInstructions,
		quote.Status, quote.BasePriceCents, quote.AdditionalPriceCents, quote.TotalPriceCents,
		quote.SuggestedPriceCents, quote.AdminNotes, quote.CustomerNotes, quote.CreatedAt, quote.UpdatedAt,
	); err != nil {
		return apperr.Storage("quotes.create", err)
	}

	if err := insertSelections(ctx, tx, selections); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const quoteColumns = `
	id, customer_id, customer_name, customer_email, customer_phone, address,
	property_type, bedrooms, bathrooms, square_footage, service_tier, frequency, has_pets,
	proposed_date_1, proposed_date_2, proposed_date_3, special_instructions,
	status, base_price_cents, additional_price_cents, total_price_cents,
	suggested_price_cents, admin_notes, customer_notes, created_at, updated_at`

func scanQuote(row pgx.Row) (*QuoteRequest, error) {
	var q QuoteRequest
	err := row.Scan(
		&q.ID, &q.CustomerID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone, &q.Address,
		&q.PropertyType, &q.Bedrooms, &q.Bathrooms, &q.SquareFootage, &q.ServiceTier, &q.Frequency, &q.HasPets,
		&q.ProposedDate1, &q.ProposedDate2, &q.ProposedDate3, &q.SpecialInstructions,
		&q.Status, &q.BasePriceCents, &q.AdditionalPriceCents, &q.TotalPriceCents,
		&q.SuggestedPriceCents, &q.AdminNotes, &q.CustomerNotes, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetByID retrieves a quote request by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*QuoteRequest, error) {
	query := `SELECT ` + quoteColumns + ` FROM quote_requests WHERE id = $1`
	q, err := scanQuote(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, apperr.Storage("quotes.get", err)
	}
	return q, nil
}

// GetSelections retrieves the additional-service ledger for a quote.
func (r *Repository) GetSelections(ctx context.Context, quoteID uuid.UUID) ([]Selection, error) {
	query := `
		SELECT id, quote_id, service_key, price_cents, created_at
		FROM quote_additional_services WHERE quote_id = $1
		ORDER BY created_at ASC, service_key ASC`

	rows, err := r.pool.Query(ctx, query, quoteID)
	if err != nil {
		return nil, apperr.Storage("quotes.selections", err)
	}
	defer rows.Close()

	var selections []Selection
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.ID, &s.QuoteID, &s.ServiceKey, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, apperr.Storage("quotes.selections", err)
		}
		selections = append(selections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("quotes.selections", err)
	}
	return selections, nil
}

// SetPricing stores the admin's pricing, replaces the ledger wholesale, and
// moves the quote to the quoted status, all in one transaction. The write is
// conditional on the expected current status; a concurrent modification
// surfaces as a conflict, a missing row as not found.
func (r *Repository) SetPricing(ctx context.Context, quoteID uuid.UUID, expected domain.Status, pricing Pricing) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Storage("quotes.set_pricing", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE quote_requests SET
			status = $3, base_price_cents = $4, additional_price_cents = $5,
			total_price_cents = $6, admin_notes = COALESCE($7, admin_notes),
			suggested_price_cents = NULL, updated_at = $8
		WHERE id = $1 AND status = $2`

	result, err := tx.Exec(ctx, query,
		quoteID, expected, domain.StatusQuoted,
		pricing.BasePriceCents, pricing.AdditionalPriceCents, pricing.TotalPriceCents,
		pricing.AdminNotes, time.Now(),
	)
	if err != nil {
		return apperr.Storage("quotes.set_pricing", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, quoteID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_additional_services WHERE quote_id = $1`, quoteID); err != nil {
		return apperr.Storage("quotes.set_pricing", err)
	}
	if err := insertSelections(ctx, tx, pricing.Selections); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RecordCounterOffer replaces the ledger with the customer's proposal, sets
// the total to the proposed value, records the suggestion and notes, and
// leaves the status quoted. Atomic; conditional on the quote still being
// quoted.
func (r *Repository) RecordCounterOffer(ctx context.Context, quoteID uuid.UUID, proposedCents int64, notes *string, selections []Selection) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Storage("quotes.counter_offer", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE quote_requests SET
			total_price_cents = $3, suggested_price_cents = $3,
			customer_notes = COALESCE($4, customer_notes), updated_at = $5
		WHERE id = $1 AND status = $2`

	result, err := tx.Exec(ctx, query, quoteID, domain.StatusQuoted, proposedCents, notes, time.Now())
	if err != nil {
		return apperr.Storage("quotes.counter_offer", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, quoteID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_additional_services WHERE quote_id = $1`, quoteID); err != nil {
		return apperr.Storage("quotes.counter_offer", err)
	}
	if err := insertSelections(ctx, tx, selections); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateStatus performs a conditional status transition:
// UPDATE ... WHERE id AND status = expected. Zero rows affected means either
// the quote vanished (not found) or another request won the race (conflict).
func (r *Repository) UpdateStatus(ctx context.Context, quoteID uuid.UUID, expected, next domain.Status) error {
	query := `UPDATE quote_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.pool.Exec(ctx, query, quoteID, expected, next, time.Now())
	if err != nil {
		return apperr.Storage("quotes.update_status", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, quoteID)
	}
	return nil
}

// RecordDecline flips the quote to declined and keeps the customer's reason
// for history. Conditional on the expected current status.
func (r *Repository) RecordDecline(ctx context.Context, quoteID uuid.UUID, expected domain.Status, reason *string) error {
	query := `
		UPDATE quote_requests SET
			status = $3, customer_notes = COALESCE($4, customer_notes), updated_at = $5
		WHERE id = $1 AND status = $2`
	result, err := r.pool.Exec(ctx, query, quoteID, expected, domain.StatusDeclined, reason, time.Now())
	if err != nil {
		return apperr.Storage("quotes.decline", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, quoteID)
	}
	return nil
}

// MarkPaid sets the quote to paid from any status payment may arrive in.
// Re-running on an already-paid quote affects one row and stays a no-op in
// effect, which keeps webhook redelivery idempotent.
func (r *Repository) MarkPaid(ctx context.Context, quoteID uuid.UUID) error {
	query := `
		UPDATE quote_requests SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)`
	eligible := []string{
		string(domain.StatusQuoted),
		string(domain.StatusAccepted),
		string(domain.StatusPaid),
	}
	result, err := r.pool.Exec(ctx, query, quoteID, domain.StatusPaid, time.Now(), eligible)
	if err != nil {
		return apperr.Storage("quotes.mark_paid", err)
	}
	if result.RowsAffected() == 0 {
		return r.conditionalFailure(ctx, quoteID)
	}
	return nil
}

// conditionalFailure distinguishes a lost row from a lost race after a
// conditional write touched zero rows.
func (r *Repository) conditionalFailure(ctx context.Context, quoteID uuid.UUID) error {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM quote_requests WHERE id = $1`, quoteID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return apperr.Storage("quotes.reread", err)
	}
	return apperr.Conflict("quote was modified concurrently, re-read and retry")
}

func insertSelections(ctx context.Context, tx pgx.Tx, selections []Selection) error {
	query := `
		INSERT INTO quote_additional_services (id, quote_id, service_key, price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, s := range selections {
		if _, err := tx.Exec(ctx, query, s.ID, s.QuoteID, s.ServiceKey, s.PriceCents, s.CreatedAt); err != nil {
			return apperr.Storage("quotes.insert_selection", err)
		}
	}
	return nil
}

// List retrieves quote requests with filtering, sorting and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return nil, err
	}
	sortOrder, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return nil, err
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}
	var customerParam interface{}
	if params.CustomerID != nil {
		customerParam = *params.CustomerID
	}

	baseQuery := `
		FROM quote_requests
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::uuid IS NULL OR customer_id = $2)
	`
	args := []interface{}{statusParam, customerParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, apperr.Storage("quotes.count", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + quoteColumns + baseQuery + `
		ORDER BY
			CASE WHEN $3 = 'status' AND $4 = 'asc' THEN status END ASC,
			CASE WHEN $3 = 'status' AND $4 = 'desc' THEN status END DESC,
			CASE WHEN $3 = 'total' AND $4 = 'asc' THEN total_price_cents END ASC,
			CASE WHEN $3 = 'total' AND $4 = 'desc' THEN total_price_cents END DESC,
			CASE WHEN $3 = 'createdAt' AND $4 = 'asc' THEN created_at END ASC,
			CASE WHEN $3 = 'createdAt' AND $4 = 'desc' THEN created_at END DESC,
			CASE WHEN $3 = 'updatedAt' AND $4 = 'asc' THEN updated_at END ASC,
			CASE WHEN $3 = 'updatedAt' AND $4 = 'desc' THEN updated_at END DESC,
			created_at DESC
		LIMIT $5 OFFSET $6`

	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, apperr.Storage("quotes.list", err)
	}
	defer rows.Close()

	var items []QuoteRequest
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, apperr.Storage("quotes.list", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("quotes.list", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// CountsByStatus returns the number of quotes per status for the admin
// dashboard.
func (r *Repository) CountsByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM quote_requests GROUP BY status`)
	if err != nil {
		return nil, apperr.Storage("quotes.stats", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperr.Storage("quotes.stats", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("quotes.stats", err)
	}
	return counts, nil
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "status", "total", "createdAt", "updatedAt":
		return sortBy, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(sortOrder string) (string, error) {
	if sortOrder == "" {
		return "desc", nil
	}
	switch sortOrder {
	case "asc", "desc":
		return sortOrder, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}
