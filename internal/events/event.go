// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"cleanbroker/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteSubmitted is published when a customer submits a new quote request.
type QuoteSubmitted struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	ServiceTier   string    `json:"serviceTier"`
}

func (e QuoteSubmitted) EventName() string { return "quotes.submitted" }

// QuotePriced is published when an admin prices a pending quote request.
type QuotePriced struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	TotalCents    int64     `json:"totalCents"`
}

func (e QuotePriced) EventName() string { return "quotes.priced" }

// QuoteAccepted is published when a customer accepts an offered price.
type QuoteAccepted struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	TotalCents    int64     `json:"totalCents"`
}

func (e QuoteAccepted) EventName() string { return "quotes.accepted" }

// QuoteDeclined is published when a customer declines an offered price.
type QuoteDeclined struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	Reason        string    `json:"reason,omitempty"`
}

func (e QuoteDeclined) EventName() string { return "quotes.declined" }

// QuoteCounterOffered is published when a customer proposes a different price.
type QuoteCounterOffered struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	ProposedCents int64     `json:"proposedCents"`
	PreviousCents int64     `json:"previousCents"`
}

func (e QuoteCounterOffered) EventName() string { return "quotes.counter_offered" }

// QuotePaid is published when a payment for a quote is reconciled.
type QuotePaid struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	AmountCents   int64     `json:"amountCents"`
	Reference     string    `json:"reference"`
}

func (e QuotePaid) EventName() string { return "quotes.paid" }

// QuoteScheduled is published when a paid quote receives a service date.
type QuoteScheduled struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
	ScheduledAt   time.Time `json:"scheduledAt"`
}

func (e QuoteScheduled) EventName() string { return "quotes.scheduled" }

// QuoteCompleted is published when the service for a quote is completed.
type QuoteCompleted struct {
	BaseEvent
	QuoteID       uuid.UUID `json:"quoteId"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerEmail string    `json:"customerEmail"`
}

func (e QuoteCompleted) EventName() string { return "quotes.completed" }

// =============================================================================
// Assignment Domain Events
// =============================================================================

// AssignmentCreated is published when a cleaner is assigned to a quote.
type AssignmentCreated struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	QuoteID      uuid.UUID `json:"quoteId"`
	CleanerID    uuid.UUID `json:"cleanerId"`
	CleanerEmail string    `json:"cleanerEmail"`
	PayoutCents  int64     `json:"payoutCents"`
}

func (e AssignmentCreated) EventName() string { return "assignments.created" }

// AssignmentAccepted is published when a cleaner accepts an assignment.
type AssignmentAccepted struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	QuoteID      uuid.UUID `json:"quoteId"`
	CleanerID    uuid.UUID `json:"cleanerId"`
}

func (e AssignmentAccepted) EventName() string { return "assignments.accepted" }

// AssignmentRejected is published when a cleaner rejects an assignment.
type AssignmentRejected struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	QuoteID      uuid.UUID `json:"quoteId"`
	CleanerID    uuid.UUID `json:"cleanerId"`
	Reason       string    `json:"reason,omitempty"`
}

func (e AssignmentRejected) EventName() string { return "assignments.rejected" }

// AssignmentCancelled is published when an admin cancels an assignment.
type AssignmentCancelled struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	QuoteID      uuid.UUID `json:"quoteId"`
	CleanerID    uuid.UUID `json:"cleanerId"`
	CleanerEmail string    `json:"cleanerEmail"`
}

func (e AssignmentCancelled) EventName() string { return "assignments.cancelled" }
