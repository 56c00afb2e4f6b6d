// Package transport defines the request and response shapes for the quotes
// module.
package transport

import (
	"time"

	"cleanbroker/internal/quotes/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// SubmitQuoteRequest is the customer's quote request submission.
type SubmitQuoteRequest struct {
	CustomerName  string  `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string  `json:"customerEmail" validate:"required,email"`
	CustomerPhone *string `json:"customerPhone" validate:"omitempty,max=30"`
	Address       string  `json:"address" validate:"required,min=1,max=500"`

	PropertyType  string `json:"propertyType" validate:"required,oneof=house apartment condo office"`
	Bedrooms      int    `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms     int    `json:"bathrooms" validate:"min=0,max=50"`
	SquareFootage int    `json:"squareFootage" validate:"min=0,max=100000"`
	ServiceTier   string `json:"serviceTier" validate:"required,oneof=standard deep post_construction"`
	Frequency     string `json:"frequency" validate:"required,oneof=one_time weekly biweekly monthly"`
	HasPets       bool   `json:"hasPets"`

	// Up to three dates the customer proposes for the service.
	ProposedDates []time.Time `json:"proposedDates" validate:"omitempty,max=3"`

	SpecialInstructions *string `json:"specialInstructions" validate:"omitempty,max=2000"`

	// Requested additional services by catalog key. Unknown or inactive
	// keys are silently excluded from pricing.
	AdditionalServices []string `json:"additionalServices" validate:"omitempty,max=20,dive,min=1,max=100"`
}

// PriceQuoteRequest is the admin pricing a quote request. The base price is
// always recomputed server-side; the admin controls the selection set and
// notes, never the final number directly.
type PriceQuoteRequest struct {
	AdditionalServices []string `json:"additionalServices" validate:"omitempty,max=20,dive,min=1,max=100"`
	AdminNotes         *string  `json:"adminNotes" validate:"omitempty,max=2000"`
}

// CounterOfferSelection is one service the customer keeps in their proposal,
// at the price it already carried.
type CounterOfferSelection struct {
	ServiceKey string `json:"serviceKey" validate:"required,min=1,max=100"`
	PriceCents int64  `json:"priceCents" validate:"min=0"`
}

// CounterOfferRequest is the customer's price/scope proposal on a quoted
// quote.
type CounterOfferRequest struct {
	ProposedTotalCents int64                   `json:"proposedTotalCents" validate:"required,gt=0"`
	Selections         []CounterOfferSelection `json:"selections" validate:"omitempty,max=20,dive"`
	Notes              *string                 `json:"notes" validate:"omitempty,max=2000"`
}

// DeclineQuoteRequest optionally carries the customer's reason.
type DeclineQuoteRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

// ScheduleQuoteRequest picks the confirmed service date.
type ScheduleQuoteRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// ListQuotesQuery is the query-string filter for quote listings.
type ListQuotesQuery struct {
	Status    string `form:"status" validate:"omitempty,oneof=pending quoted accepted declined paid scheduled completed"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=status total createdAt updatedAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// SelectionResponse is one additional-service line on a quote.
type SelectionResponse struct {
	ServiceKey string `json:"serviceKey"`
	PriceCents int64  `json:"priceCents"`
}

// QuoteResponse is the full quote request representation.
type QuoteResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone *string   `json:"customerPhone,omitempty"`
	Address       string    `json:"address"`

	PropertyType  string `json:"propertyType"`
	Bedrooms      int    `json:"bedrooms"`
	Bathrooms     int    `json:"bathrooms"`
	SquareFootage int    `json:"squareFootage"`
	ServiceTier   string `json:"serviceTier"`
	Frequency     string `json:"frequency"`
	HasPets       bool   `json:"hasPets"`

	ProposedDates       []time.Time `json:"proposedDates,omitempty"`
	SpecialInstructions *string     `json:"specialInstructions,omitempty"`

	Status domain.Status `json:"status"`

	BasePriceCents       int64  `json:"basePriceCents"`
	AdditionalPriceCents int64  `json:"additionalPriceCents"`
	TotalPriceCents      int64  `json:"totalPriceCents"`
	SuggestedPriceCents  *int64 `json:"suggestedPriceCents,omitempty"`

	AdminNotes    *string `json:"adminNotes,omitempty"`
	CustomerNotes *string `json:"customerNotes,omitempty"`

	Selections []SelectionResponse `json:"additionalServices"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListQuotesResponse is a paginated quote listing.
type ListQuotesResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// StatsResponse holds per-status quote counts for the admin dashboard.
type StatsResponse struct {
	Counts map[domain.Status]int `json:"counts"`
	Total  int                   `json:"total"`
}
