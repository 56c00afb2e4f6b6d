package service

import (
	"context"
	"errors"
	"testing"

	"cleanbroker/internal/payments/repository"
	"cleanbroker/internal/payments/transport"
	quotesdomain "cleanbroker/internal/quotes/domain"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	byRef map[string]*repository.Transaction
}

func (f *fakeStore) Create(_ context.Context, t *repository.Transaction) (bool, error) {
	if _, ok := f.byRef[t.ExternalRef]; ok {
		return false, nil
	}
	copied := *t
	f.byRef[t.ExternalRef] = &copied
	return true, nil
}

func (f *fakeStore) GetByExternalRef(_ context.Context, ref string) (*repository.Transaction, error) {
	t, ok := f.byRef[ref]
	if !ok {
		return nil, apperr.NotFound("transaction not found")
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) ListByQuote(_ context.Context, quoteID uuid.UUID) ([]repository.Transaction, error) {
	var result []repository.Transaction
	for _, t := range f.byRef {
		if t.QuoteID == quoteID {
			result = append(result, *t)
		}
	}
	return result, nil
}

type fakeQuotes struct {
	quotes      map[uuid.UUID]*quotesrepo.QuoteRequest
	markedPaid  int
	markPaidErr error // consumed by the next MarkPaid call
}

func (f *fakeQuotes) GetByID(_ context.Context, id uuid.UUID) (*quotesrepo.QuoteRequest, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuotes) MarkPaid(_ context.Context, quoteID uuid.UUID) error {
	if f.markPaidErr != nil {
		err := f.markPaidErr
		f.markPaidErr = nil
		return err
	}
	q, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	q.Status = quotesdomain.StatusPaid
	f.markedPaid++
	return nil
}

type fakeBookings struct {
	confirmed int
}

func (f *fakeBookings) EnsureConfirmed(_ context.Context, _ uuid.UUID) error {
	f.confirmed++
	return nil
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	quotes   *fakeQuotes
	bookings *fakeBookings
	quoteID  uuid.UUID
}

func newFixture(t *testing.T, status quotesdomain.Status) *fixture {
	t.Helper()

	quoteID := uuid.New()
	f := &fixture{
		store: &fakeStore{byRef: make(map[string]*repository.Transaction)},
		quotes: &fakeQuotes{quotes: map[uuid.UUID]*quotesrepo.QuoteRequest{
			quoteID: {
				ID:              quoteID,
				CustomerID:      uuid.New(),
				CustomerName:    "Jamie Doe",
				CustomerEmail:   "jamie@example.com",
				Status:          status,
				TotalPriceCents: 22600,
			},
		}},
		bookings: &fakeBookings{},
		quoteID:  quoteID,
	}
	f.svc = New(f.store, f.quotes, f.bookings, nil, nil)
	return f
}

func (f *fixture) webhook(ref string, status string) transport.WebhookRequest {
	return transport.WebhookRequest{
		ExternalRef: ref,
		QuoteID:     f.quoteID,
		Status:      status,
		AmountCents: 22600,
		Currency:    "USD",
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", kind)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, appErr.Kind, err)
	}
}

func TestRecordMarksQuotePaid(t *testing.T) {
	f := newFixture(t, quotesdomain.StatusAccepted)

	resp, err := f.svc.Record(context.Background(), f.webhook("pay_001", "succeeded"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if resp.Duplicate {
		t.Fatal("first delivery flagged as duplicate")
	}
	if f.quotes.quotes[f.quoteID].Status != quotesdomain.StatusPaid {
		t.Fatalf("expected quote paid, got %s", f.quotes.quotes[f.quoteID].Status)
	}
	if f.bookings.confirmed != 1 {
		t.Fatalf("expected 1 booking confirmation, got %d", f.bookings.confirmed)
	}
}

func TestRecordIsIdempotentOnRedelivery(t *testing.T) {
	f := newFixture(t, quotesdomain.StatusQuoted)
	ctx := context.Background()

	if _, err := f.svc.Record(ctx, f.webhook("pay_001", "succeeded")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	resp, err := f.svc.Record(ctx, f.webhook("pay_001", "succeeded"))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !resp.Duplicate {
		t.Fatal("redelivery not flagged as duplicate")
	}

	if len(f.store.byRef) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(f.store.byRef))
	}
	if f.quotes.markedPaid != 1 {
		t.Fatalf("expected MarkPaid once, got %d", f.quotes.markedPaid)
	}
	// The duplicate re-runs the idempotent confirm; the booking upsert
	// only strengthens, so running it twice is harmless.
	if f.bookings.confirmed != 2 {
		t.Fatalf("expected 2 booking confirmations, got %d", f.bookings.confirmed)
	}
}

func TestRecordConvergesAfterFailedSettlement(t *testing.T) {
	// First delivery inserts the ledger row but dies before the status
	// write; redelivery of the same reference must finish the job instead
	// of acknowledging a stranded quote.
	f := newFixture(t, quotesdomain.StatusAccepted)
	f.quotes.markPaidErr = errors.New("connection reset")
	ctx := context.Background()

	if _, err := f.svc.Record(ctx, f.webhook("pay_001", "succeeded")); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	if f.quotes.quotes[f.quoteID].Status != quotesdomain.StatusAccepted {
		t.Fatalf("quote moved to %s on a failed settlement", f.quotes.quotes[f.quoteID].Status)
	}

	resp, err := f.svc.Record(ctx, f.webhook("pay_001", "succeeded"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !resp.Duplicate {
		t.Fatal("redelivery not flagged as duplicate")
	}
	if len(f.store.byRef) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(f.store.byRef))
	}
	if f.quotes.quotes[f.quoteID].Status != quotesdomain.StatusPaid {
		t.Fatalf("quote did not converge to paid, stuck at %s", f.quotes.quotes[f.quoteID].Status)
	}
	if f.bookings.confirmed != 1 {
		t.Fatalf("expected 1 booking confirmation, got %d", f.bookings.confirmed)
	}
}

func TestRecordSkipsMarkPaidOnLateSettlement(t *testing.T) {
	// Redelivery after the job was already scheduled must not move the
	// quote backwards, but still confirms the booking and records the row.
	f := newFixture(t, quotesdomain.StatusScheduled)

	if _, err := f.svc.Record(context.Background(), f.webhook("pay_late", "succeeded")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if f.quotes.markedPaid != 0 {
		t.Fatalf("expected MarkPaid skipped, called %d times", f.quotes.markedPaid)
	}
	if f.quotes.quotes[f.quoteID].Status != quotesdomain.StatusScheduled {
		t.Fatalf("quote status moved to %s", f.quotes.quotes[f.quoteID].Status)
	}
}

func TestRecordRejectsPaymentForUnquotedQuote(t *testing.T) {
	f := newFixture(t, quotesdomain.StatusPending)

	_, err := f.svc.Record(context.Background(), f.webhook("pay_001", "succeeded"))
	assertKind(t, err, apperr.KindInvalidTransition)

	// The ledger row stays as evidence even though the transition failed.
	if len(f.store.byRef) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(f.store.byRef))
	}
}

func TestRecordFailedOutcomeLeavesQuoteAlone(t *testing.T) {
	f := newFixture(t, quotesdomain.StatusQuoted)

	if _, err := f.svc.Record(context.Background(), f.webhook("pay_fail", "failed")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if f.quotes.markedPaid != 0 {
		t.Fatal("failed payment marked the quote paid")
	}
	if f.bookings.confirmed != 0 {
		t.Fatal("failed payment confirmed the booking")
	}
	if f.store.byRef["pay_fail"].Status != repository.StatusFailed {
		t.Fatalf("expected failed ledger row, got %s", f.store.byRef["pay_fail"].Status)
	}
}

func TestRecordAmountMismatchIsAccepted(t *testing.T) {
	f := newFixture(t, quotesdomain.StatusAccepted)

	req := f.webhook("pay_001", "succeeded")
	req.AmountCents = 20000

	if _, err := f.svc.Record(context.Background(), req); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if f.quotes.quotes[f.quoteID].Status != quotesdomain.StatusPaid {
		t.Fatal("mismatched amount blocked reconciliation")
	}
	if f.store.byRef["pay_001"].AmountCents != 20000 {
		t.Fatalf("ledger row has %d, want the settled 20000", f.store.byRef["pay_001"].AmountCents)
	}
}
