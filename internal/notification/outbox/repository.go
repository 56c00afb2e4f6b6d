// Package outbox persists pending notifications so delivery survives
// restarts and can be retried.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Record is one queued notification.
type Record struct {
	ID        uuid.UUID
	Template  string
	Recipient string
	Payload   json.RawMessage
	RunAt     time.Time
	Status    Status
	Attempts  int
}

// InsertParams describes a notification to queue.
type InsertParams struct {
	Template  string
	Recipient string
	Payload   any
	RunAt     time.Time
}

// Repository provides access to the notification_outbox table.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new outbox repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert queues a notification for delivery.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if p.Template == "" {
		return uuid.Nil, apperr.BadRequest("template is required")
	}
	if p.Recipient == "" {
		return uuid.Nil, apperr.BadRequest("recipient is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "marshal outbox payload", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO notification_outbox (id, template, recipient, payload, run_at, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')
		 RETURNING id`,
		uuid.New(), p.Template, p.Recipient, payloadBytes, p.RunAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Storage("outbox.Insert", err)
	}
	return id, nil
}

// ClaimPending atomically moves up to limit due rows to processing and
// returns them. FOR UPDATE SKIP LOCKED keeps concurrent workers from
// claiming the same rows.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Storage("outbox.ClaimPending", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH due AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'processing', attempts = o.attempts + 1, updated_at = now()
	FROM due
	WHERE o.id = due.id
	RETURNING o.id, o.template, o.recipient, o.payload, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, apperr.Storage("outbox.ClaimPending", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Template, &rec.Recipient, &rec.Payload, &rec.RunAt, &rec.Status, &rec.Attempts); err != nil {
			return nil, apperr.Storage("outbox.ClaimPending", err)
		}
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, apperr.Storage("outbox.ClaimPending", rows.Err())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("outbox.ClaimPending", err)
	}
	return results, nil
}

// ReclaimStale returns processing rows older than the cutoff to pending.
// A row stuck in processing means a worker died between claim and mark;
// without this sweep those notifications would never be delivered.
func (r *Repository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', updated_at = now()
		 WHERE status = 'processing' AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, apperr.Storage("outbox.ReclaimStale", err)
	}
	return int(tag.RowsAffected()), nil
}

// MarkPending returns a row to the queue for a later retry.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
	if err != nil {
		return apperr.Storage("outbox.MarkPending", err)
	}
	return nil
}

// MarkSucceeded records a successful delivery.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return apperr.Storage("outbox.MarkSucceeded", err)
	}
	return nil
}

// MarkFailed gives up on a row permanently.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	if err != nil {
		return apperr.Storage("outbox.MarkFailed", err)
	}
	return nil
}
