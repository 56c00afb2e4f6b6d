// Package transport defines the request and response shapes for the catalog.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertItemRequest creates or reprices an additional service.
type UpsertItemRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=120"`
	PriceCents  int64  `json:"priceCents" validate:"required,gt=0"`
}

// ItemResponse is the catalog item representation.
type ItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ServiceKey  string    `json:"serviceKey"`
	DisplayName string    `json:"displayName"`
	PriceCents  int64     `json:"priceCents"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
