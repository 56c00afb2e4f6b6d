// Package transport defines the wire shapes for payment webhooks.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// WebhookRequest is the payment provider's notification payload.
type WebhookRequest struct {
	ExternalRef string    `json:"externalRef" validate:"required,max=255"`
	QuoteID     uuid.UUID `json:"quoteId" validate:"required"`
	Status      string    `json:"status" validate:"required,oneof=succeeded failed pending refunded"`
	AmountCents int64     `json:"amountCents" validate:"required,gt=0"`
	Currency    string    `json:"currency" validate:"required,len=3"`
}

// TransactionResponse is the recorded transaction representation.
type TransactionResponse struct {
	ID          uuid.UUID `json:"id"`
	QuoteID     uuid.UUID `json:"quoteId"`
	ExternalRef string    `json:"externalRef"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	// Duplicate is true when the reference had already been processed and
	// this delivery changed nothing.
	Duplicate bool `json:"duplicate"`
}
