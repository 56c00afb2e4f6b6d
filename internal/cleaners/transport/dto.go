// Package transport defines the request and response shapes for the cleaners
// module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// RegisterCleanerRequest is a cleaner creating their account profile.
type RegisterCleanerRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=200"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone" validate:"omitempty,max=30"`
	Bio   *string `json:"bio" validate:"omitempty,max=2000"`
}

// ListCleanersQuery filters the admin cleaner listing.
type ListCleanersQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending_review approved suspended"`
}

// CleanerResponse is the cleaner account representation.
type CleanerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Status    string    `json:"status"`
	Rating    *float64  `json:"rating,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
