// Package domain holds the quote lifecycle model: statuses, service tiers,
// and the closed set of transition commands that move a quote between them.
package domain

// Status is the lifecycle state of a quote request.
type Status string

const (
	// StatusPending means the customer submitted and the quote awaits pricing.
	StatusPending Status = "pending"
	// StatusQuoted means an admin priced the quote; awaiting customer response.
	StatusQuoted Status = "quoted"
	// StatusAccepted means the customer accepted the offered price.
	StatusAccepted Status = "accepted"
	// StatusDeclined means the customer declined. Terminal.
	StatusDeclined Status = "declined"
	// StatusPaid means a successful payment has been reconciled.
	StatusPaid Status = "paid"
	// StatusScheduled means a service date has been confirmed.
	StatusScheduled Status = "scheduled"
	// StatusCompleted means the service was performed. Terminal.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusQuoted, StatusAccepted, StatusDeclined,
		StatusPaid, StatusScheduled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusCompleted
}

// AtLeastPaid reports whether the quote has reached the paid stage.
// Assignment requires this.
func (s Status) AtLeastPaid() bool {
	return s == StatusPaid || s == StatusScheduled || s == StatusCompleted
}

// ServiceTier is the cleaning category that selects the pricing constants.
type ServiceTier string

const (
	TierStandard         ServiceTier = "standard"
	TierDeep             ServiceTier = "deep"
	TierPostConstruction ServiceTier = "post_construction"
)

// Valid reports whether t is a known tier.
func (t ServiceTier) Valid() bool {
	switch t {
	case TierStandard, TierDeep, TierPostConstruction:
		return true
	}
	return false
}
