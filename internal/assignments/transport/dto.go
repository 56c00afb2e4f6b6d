// Package transport defines the request and response shapes for the
// assignments module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// AssignRequest binds a paid quote to an approved cleaner. The payout is
// admin-supplied; any UI suggestion is only a hint.
type AssignRequest struct {
	QuoteID            uuid.UUID `json:"quoteId" validate:"required"`
	CleanerID          uuid.UUID `json:"cleanerId" validate:"required"`
	PaymentAmountCents int64     `json:"paymentAmountCents" validate:"required,gt=0"`
	AdminNotes         *string   `json:"adminNotes" validate:"omitempty,max=2000"`
}

// CleanerActionRequest optionally carries cleaner notes on a transition.
type CleanerActionRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdatePaymentStatusRequest advances the payout status.
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=pending processing paid"`
}

// UpdatePayoutRequest changes the payout amount before it is paid.
type UpdatePayoutRequest struct {
	PaymentAmountCents int64 `json:"paymentAmountCents" validate:"required,gt=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// AssignmentResponse is the assignment representation.
type AssignmentResponse struct {
	ID        uuid.UUID `json:"id"`
	QuoteID   uuid.UUID `json:"quoteId"`
	CleanerID uuid.UUID `json:"cleanerId"`
	Status    string    `json:"status"`

	PaymentAmountCents int64  `json:"paymentAmountCents"`
	PaymentStatus      string `json:"paymentStatus"`

	AdminNotes   *string `json:"adminNotes,omitempty"`
	CleanerNotes *string `json:"cleanerNotes,omitempty"`

	AssignedAt  time.Time  `json:"assignedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
