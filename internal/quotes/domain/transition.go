package domain

import (
	"fmt"
	"time"

	"cleanbroker/platform/apperr"
)

// Actor identifies who is requesting a transition. Ownership checks
// (does this quote belong to this customer) live in the service layer;
// the dispatcher only checks that the actor kind may issue the command.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
	ActorCleaner  Actor = "cleaner"
	// ActorSystem is used for payment-provider callbacks.
	ActorSystem Actor = "system"
)

// Transition is one command from the closed set of lifecycle events.
// Each variant knows its legal source statuses, its resulting status,
// and which actors may issue it.
type Transition interface {
	// Event returns the transition name for logging and errors.
	Event() string

	sources() []Status
	target(current Status) Status
	allowedActor(a Actor) bool
}

// SetPrice is the admin pricing a pending quote (or re-pricing a quoted one
// after a counter-offer). Moves the quote to quoted.
type SetPrice struct {
	BasePriceCents       int64
	AdditionalPriceCents int64
	TotalPriceCents      int64
	AdminNotes           string
}

func (SetPrice) Event() string               { return "set_price" }
func (SetPrice) sources() []Status           { return []Status{StatusPending, StatusQuoted} }
func (SetPrice) target(Status) Status        { return StatusQuoted }
func (SetPrice) allowedActor(a Actor) bool   { return a == ActorAdmin }

// Accept is the customer accepting the offered price.
type Accept struct{}

func (Accept) Event() string             { return "accept" }
func (Accept) sources() []Status         { return []Status{StatusQuoted} }
func (Accept) target(Status) Status      { return StatusAccepted }
func (Accept) allowedActor(a Actor) bool { return a == ActorCustomer }

// Decline is the customer declining. Legal from any pre-paid state.
type Decline struct {
	Reason string
}

func (Decline) Event() string             { return "decline" }
func (Decline) sources() []Status         { return []Status{StatusPending, StatusQuoted, StatusAccepted} }
func (Decline) target(Status) Status      { return StatusDeclined }
func (Decline) allowedActor(a Actor) bool { return a == ActorCustomer }

// CounterOffer is the customer proposing a different total and a replacement
// set of additional services. The status does not change; the quote stays
// quoted awaiting admin re-review.
type CounterOffer struct {
	ProposedTotalCents int64
	Selections         []SelectionSnapshot
	CustomerNotes      string
}

func (CounterOffer) Event() string             { return "counter_offer" }
func (CounterOffer) sources() []Status         { return []Status{StatusQuoted} }
func (CounterOffer) target(Status) Status      { return StatusQuoted }
func (CounterOffer) allowedActor(a Actor) bool { return a == ActorCustomer }

// PaymentSuccess is delivered by the payment provider. Legal from quoted
// (client-redirect fallback), accepted, and — idempotently — paid.
type PaymentSuccess struct {
	ExternalRef string
	AmountCents int64
	Currency    string
}

func (PaymentSuccess) Event() string     { return "payment_success" }
func (PaymentSuccess) sources() []Status { return []Status{StatusQuoted, StatusAccepted, StatusPaid} }
func (PaymentSuccess) target(Status) Status {
	return StatusPaid
}
func (PaymentSuccess) allowedActor(a Actor) bool { return a == ActorSystem || a == ActorAdmin }

// Schedule confirms a service date. Re-scheduling a scheduled quote is legal.
type Schedule struct {
	ScheduledAt time.Time
}

func (Schedule) Event() string             { return "schedule" }
func (Schedule) sources() []Status         { return []Status{StatusPaid, StatusScheduled} }
func (Schedule) target(Status) Status      { return StatusScheduled }
func (Schedule) allowedActor(a Actor) bool { return a == ActorAdmin }

// Complete marks the service as performed. Terminal.
type Complete struct{}

func (Complete) Event() string        { return "complete" }
func (Complete) sources() []Status    { return []Status{StatusScheduled} }
func (Complete) target(Status) Status { return StatusCompleted }
func (Complete) allowedActor(a Actor) bool {
	return a == ActorAdmin || a == ActorCleaner
}

// SelectionSnapshot is one additional-service line with its price frozen at
// selection time. The ledger is always replaced wholesale, never patched.
type SelectionSnapshot struct {
	ServiceKey string
	PriceCents int64
}

// Apply validates t against the current persisted status and the acting
// party, and returns the resulting status. The caller must perform the
// actual write as a conditional update on the source status.
func Apply(current Status, t Transition, actor Actor) (Status, error) {
	if !current.Valid() {
		return "", apperr.InvalidTransition(fmt.Sprintf("unknown quote status %q", current))
	}
	if !t.allowedActor(actor) {
		return "", apperr.New(apperr.KindForbidden,
			fmt.Sprintf("%s may not %s a quote", actor, t.Event()))
	}
	for _, from := range t.sources() {
		if current == from {
			return t.target(current), nil
		}
	}
	return "", apperr.InvalidTransition(
		fmt.Sprintf("cannot %s a quote in status %q", t.Event(), current))
}
