package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"cleanbroker/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendQuoteReceivedEmail(ctx context.Context, toEmail, customerName string) error {
	content, err := renderEmailTemplate("quote_received.html", quoteReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Request received",
			Heading: "We received your request",
		},
		CustomerName: customerName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteReceived, content)
}

func (s *SMTPSender) SendQuoteReadyEmail(ctx context.Context, toEmail, customerName string, totalCents int64, quoteURL string) error {
	total := formatCurrencyUSD(totalCents)
	content, err := renderEmailTemplate("quote_ready.html", quoteReadyEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your quote is ready",
			Heading:  "Your quote is ready",
			CTALabel: "View quote",
			CTAURL:   quoteURL,
		},
		CustomerName:   customerName,
		TotalFormatted: total,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectQuoteReadyFmt, total), content)
}

func (s *SMTPSender) SendQuoteAcceptedEmail(ctx context.Context, toEmail, customerName string, totalCents int64) error {
	content, err := renderEmailTemplate("quote_accepted.html", quoteAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Quote confirmed",
			Heading: "Quote confirmed",
		},
		CustomerName:   customerName,
		TotalFormatted: formatCurrencyUSD(totalCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteAccepted, content)
}

func (s *SMTPSender) SendPaymentReceivedEmail(ctx context.Context, toEmail, customerName string, amountCents int64) error {
	content, err := renderEmailTemplate("payment_received.html", paymentReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment received",
			Heading: "Payment received",
		},
		CustomerName:    customerName,
		AmountFormatted: formatCurrencyUSD(amountCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentReceived, content)
}

func (s *SMTPSender) SendBookingScheduledEmail(ctx context.Context, toEmail, customerName, scheduledDate, address string) error {
	content, err := renderEmailTemplate("booking_scheduled.html", bookingScheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Cleaning scheduled",
			Heading: "Cleaning scheduled",
		},
		CustomerName:  customerName,
		ScheduledDate: scheduledDate,
		Address:       address,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingScheduled, content)
}

func (s *SMTPSender) SendBookingReminderEmail(ctx context.Context, toEmail, customerName, scheduledDate, address string) error {
	content, err := renderEmailTemplate("booking_reminder.html", bookingReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Cleaning reminder",
			Heading: "Your cleaning is coming up",
		},
		CustomerName:  customerName,
		ScheduledDate: scheduledDate,
		Address:       address,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingReminder, content)
}

func (s *SMTPSender) SendAssignmentOfferEmail(ctx context.Context, toEmail, cleanerName, address string, payoutCents int64) error {
	content, err := renderEmailTemplate("assignment_offer.html", assignmentOfferEmailData{
		baseEmailData: baseEmailData{
			Title:   "New job available",
			Heading: "New job available",
		},
		CleanerName:     cleanerName,
		Address:         address,
		PayoutFormatted: formatCurrencyUSD(payoutCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAssignmentOffer, content)
}

var _ Sender = (*SMTPSender)(nil)
