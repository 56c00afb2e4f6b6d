// Package email renders and delivers transactional email.
package email

import (
	"context"

	"cleanbroker/platform/config"
)

// Sender delivers the transactional emails the platform sends.
type Sender interface {
	SendQuoteReceivedEmail(ctx context.Context, toEmail, customerName string) error
	SendQuoteReadyEmail(ctx context.Context, toEmail, customerName string, totalCents int64, quoteURL string) error
	SendQuoteAcceptedEmail(ctx context.Context, toEmail, customerName string, totalCents int64) error
	SendPaymentReceivedEmail(ctx context.Context, toEmail, customerName string, amountCents int64) error
	SendBookingScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, address string) error
	SendBookingReminderEmail(ctx context.Context, toEmail, customerName, scheduledDate, address string) error
	SendAssignmentOfferEmail(ctx context.Context, toEmail, cleanerName, address string, payoutCents int64) error
}

// NewSender returns the sender for the current configuration. When email
// delivery is disabled everything is silently dropped.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NopSender{}
	}
	return NewSMTPSender(cfg)
}

// NopSender discards all email. Used when email delivery is disabled.
type NopSender struct{}

func (NopSender) SendQuoteReceivedEmail(context.Context, string, string) error { return nil }
func (NopSender) SendQuoteReadyEmail(context.Context, string, string, int64, string) error {
	return nil
}
func (NopSender) SendQuoteAcceptedEmail(context.Context, string, string, int64) error   { return nil }
func (NopSender) SendPaymentReceivedEmail(context.Context, string, string, int64) error { return nil }
func (NopSender) SendBookingScheduledEmail(context.Context, string, string, string, string) error {
	return nil
}
func (NopSender) SendBookingReminderEmail(context.Context, string, string, string, string) error {
	return nil
}
func (NopSender) SendAssignmentOfferEmail(context.Context, string, string, string, int64) error {
	return nil
}
