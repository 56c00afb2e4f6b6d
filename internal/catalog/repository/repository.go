// Package repository persists the additional-service catalog.
package repository

import (
	"context"
	"time"

	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Item is one purchasable additional service.
type Item struct {
	ID          uuid.UUID `db:"id"`
	ServiceKey  string    `db:"service_key"`
	DisplayName string    `db:"display_name"`
	PriceCents  int64     `db:"price_cents"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Repository provides access to the service_catalog table.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, service_key, display_name, price_cents, active, created_at, updated_at`

// ActivePrices returns the price of every active catalog item keyed by
// service key.
func (r *Repository) ActivePrices(ctx context.Context) (map[string]int64, error) {
	query := `SELECT service_key, price_cents FROM service_catalog WHERE active`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Storage("catalog.ActivePrices", err)
	}
	defer rows.Close()

	prices := make(map[string]int64)
	for rows.Next() {
		var key string
		var cents int64
		if err := rows.Scan(&key, &cents); err != nil {
			return nil, apperr.Storage("catalog.ActivePrices", err)
		}
		prices[key] = cents
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("catalog.ActivePrices", err)
	}
	return prices, nil
}

// List returns all catalog items, active or not, ordered by key.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM service_catalog ORDER BY service_key`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Storage("catalog.List", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.ServiceKey, &item.DisplayName, &item.PriceCents,
			&item.Active, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, apperr.Storage("catalog.List", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("catalog.List", err)
	}
	return items, nil
}

// GetByKey fetches a single catalog item.
func (r *Repository) GetByKey(ctx context.Context, serviceKey string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM service_catalog WHERE service_key = $1`

	var item Item
	err := r.pool.QueryRow(ctx, query, serviceKey).Scan(
		&item.ID, &item.ServiceKey, &item.DisplayName, &item.PriceCents,
		&item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("catalog item not found")
	}
	if err != nil {
		return nil, apperr.Storage("catalog.GetByKey", err)
	}
	return &item, nil
}

// Upsert creates or reprices a catalog item. Upserting reactivates it.
func (r *Repository) Upsert(ctx context.Context, serviceKey, displayName string, priceCents int64) (*Item, error) {
	query := `
		INSERT INTO service_catalog (id, service_key, display_name, price_cents, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (service_key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			price_cents = EXCLUDED.price_cents,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + itemColumns

	var item Item
	err := r.pool.QueryRow(ctx, query, uuid.New(), serviceKey, displayName, priceCents, time.Now()).Scan(
		&item.ID, &item.ServiceKey, &item.DisplayName, &item.PriceCents,
		&item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, apperr.Storage("catalog.Upsert", err)
	}
	return &item, nil
}

// SetActive toggles an item's availability without touching its price.
func (r *Repository) SetActive(ctx context.Context, serviceKey string, active bool) error {
	query := `UPDATE service_catalog SET active = $2, updated_at = $3 WHERE service_key = $1`

	tag, err := r.pool.Exec(ctx, query, serviceKey, active, time.Now())
	if err != nil {
		return apperr.Storage("catalog.SetActive", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("catalog item not found")
	}
	return nil
}
