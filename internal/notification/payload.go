package notification

// Outbox payloads, one per template. These are marshalled into the outbox
// row and decoded again by the dispatcher, so field changes must stay
// backwards compatible with rows already queued.

const (
	templateQuoteReceived    = "quote_received"
	templateQuoteReady       = "quote_ready"
	templateQuoteAccepted    = "quote_accepted"
	templatePaymentReceived  = "payment_received"
	templateBookingScheduled = "booking_scheduled"
	templateBookingReminder  = "booking_reminder"
	templateAssignmentOffer  = "assignment_offer"
)

type quoteReceivedPayload struct {
	CustomerName string `json:"customerName"`
}

type quoteReadyPayload struct {
	CustomerName string `json:"customerName"`
	TotalCents   int64  `json:"totalCents"`
	QuoteURL     string `json:"quoteUrl"`
}

type quoteAcceptedPayload struct {
	CustomerName string `json:"customerName"`
	TotalCents   int64  `json:"totalCents"`
}

type paymentReceivedPayload struct {
	CustomerName string `json:"customerName"`
	AmountCents  int64  `json:"amountCents"`
}

type bookingScheduledPayload struct {
	CustomerName  string `json:"customerName"`
	ScheduledDate string `json:"scheduledDate"`
	Address       string `json:"address"`
}

type assignmentOfferPayload struct {
	CleanerName string `json:"cleanerName"`
	Address     string `json:"address"`
	PayoutCents int64  `json:"payoutCents"`
}
