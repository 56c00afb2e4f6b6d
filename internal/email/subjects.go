package email

const (
	subjectQuoteReceived    = "We received your cleaning request"
	subjectQuoteReadyFmt    = "Your cleaning quote is ready: %s"
	subjectQuoteAccepted    = "Your quote is confirmed"
	subjectPaymentReceived  = "Payment received, thank you"
	subjectBookingScheduled = "Your cleaning is scheduled"
	subjectBookingReminder  = "Reminder: your cleaning is tomorrow"
	subjectAssignmentOffer  = "New cleaning job available"
)
