package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type quoteReceivedEmailData struct {
	baseEmailData
	CustomerName string
}

type quoteReadyEmailData struct {
	baseEmailData
	CustomerName   string
	TotalFormatted string
}

type quoteAcceptedEmailData struct {
	baseEmailData
	CustomerName   string
	TotalFormatted string
}

type paymentReceivedEmailData struct {
	baseEmailData
	CustomerName    string
	AmountFormatted string
}

type bookingScheduledEmailData struct {
	baseEmailData
	CustomerName  string
	ScheduledDate string
	Address       string
}

type bookingReminderEmailData struct {
	baseEmailData
	CustomerName  string
	ScheduledDate string
	Address       string
}

type assignmentOfferEmailData struct {
	baseEmailData
	CleanerName     string
	Address         string
	PayoutFormatted string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyUSD(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
