package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	cleanertransport "cleanbroker/internal/cleaners/transport"
	"cleanbroker/internal/events"
	"cleanbroker/internal/notification/outbox"
	quotesrepo "cleanbroker/internal/quotes/repository"
	platformevents "cleanbroker/platform/events"

	"github.com/google/uuid"
)

type fakeOutbox struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*outbox.Record
	claimedAt map[uuid.UUID]time.Time
	succeeded []uuid.UUID
	requeued  []uuid.UUID
	failed    []uuid.UUID
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		rows:      make(map[uuid.UUID]*outbox.Record),
		claimedAt: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.rows[id] = &outbox.Record{
		ID:        id,
		Template:  p.Template,
		Recipient: p.Recipient,
		Payload:   payload,
		Status:    outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) ClaimPending(_ context.Context, limit int) ([]outbox.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []outbox.Record
	for _, rec := range f.rows {
		if rec.Status != outbox.StatusPending || len(claimed) >= limit {
			continue
		}
		rec.Status = outbox.StatusProcessing
		rec.Attempts++
		f.claimedAt[rec.ID] = time.Now()
		claimed = append(claimed, *rec)
	}
	return claimed, nil
}

func (f *fakeOutbox) ReclaimStale(_ context.Context, olderThan time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	n := 0
	for id, rec := range f.rows {
		if rec.Status == outbox.StatusProcessing && f.claimedAt[id].Before(cutoff) {
			rec.Status = outbox.StatusPending
			n++
		}
	}
	return n, nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Status = outbox.StatusSucceeded
	f.succeeded = append(f.succeeded, id)
	return nil
}

func (f *fakeOutbox) MarkPending(_ context.Context, id uuid.UUID, runAt time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Status = outbox.StatusPending
	f.rows[id].RunAt = runAt
	f.requeued = append(f.requeued, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Status = outbox.StatusFailed
	f.failed = append(f.failed, id)
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) record(kind string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sent = append(f.sent, kind)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) SendQuoteReceivedEmail(_ context.Context, _, _ string) error {
	return f.record("quote_received")
}
func (f *fakeSender) SendQuoteReadyEmail(_ context.Context, _, _ string, _ int64, _ string) error {
	return f.record("quote_ready")
}
func (f *fakeSender) SendQuoteAcceptedEmail(_ context.Context, _, _ string, _ int64) error {
	return f.record("quote_accepted")
}
func (f *fakeSender) SendPaymentReceivedEmail(_ context.Context, _, _ string, _ int64) error {
	return f.record("payment_received")
}
func (f *fakeSender) SendBookingScheduledEmail(_ context.Context, _, _, _, _ string) error {
	return f.record("booking_scheduled")
}
func (f *fakeSender) SendBookingReminderEmail(_ context.Context, _, _, _, _ string) error {
	return f.record("booking_reminder")
}
func (f *fakeSender) SendAssignmentOfferEmail(_ context.Context, _, _, _ string, _ int64) error {
	return f.record("assignment_offer")
}

func queue(t *testing.T, ob *fakeOutbox, template string, payload any) uuid.UUID {
	t.Helper()
	id, err := ob.Insert(context.Background(), outbox.InsertParams{
		Template:  template,
		Recipient: "customer@example.com",
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func TestDispatchDeliversQueuedNotifications(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	d := NewDispatcher(ob, sender, nil)

	queue(t, ob, templateQuoteReady, quoteReadyPayload{CustomerName: "Jamie", TotalCents: 22600})
	queue(t, ob, templatePaymentReceived, paymentReceivedPayload{CustomerName: "Jamie", AmountCents: 22600})

	delivered, err := d.Dispatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 2 {
		t.Fatalf("expected 2 delivered, got %d", delivered)
	}
	if len(ob.succeeded) != 2 {
		t.Fatalf("expected 2 rows marked succeeded, got %d", len(ob.succeeded))
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sends, got %v", sender.sent)
	}
}

func TestDispatchRequeuesOnSendFailure(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{err: errors.New("smtp down")}
	d := NewDispatcher(ob, sender, nil)

	id := queue(t, ob, templateQuoteReceived, quoteReceivedPayload{CustomerName: "Jamie"})

	delivered, err := d.Dispatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected 0 delivered, got %d", delivered)
	}
	if len(ob.requeued) != 1 || ob.requeued[0] != id {
		t.Fatalf("expected row requeued, got %v", ob.requeued)
	}
	if ob.rows[id].Status != outbox.StatusPending {
		t.Fatalf("expected pending, got %s", ob.rows[id].Status)
	}
}

func TestDispatchParksRowAfterMaxAttempts(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{err: errors.New("smtp down")}
	d := NewDispatcher(ob, sender, nil)

	id := queue(t, ob, templateQuoteReceived, quoteReceivedPayload{CustomerName: "Jamie"})
	ob.rows[id].Attempts = maxAttempts - 1 // claiming bumps it to the cap

	if _, err := d.Dispatch(context.Background(), 10); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if ob.rows[id].Status != outbox.StatusFailed {
		t.Fatalf("expected failed, got %s", ob.rows[id].Status)
	}
}

func TestDispatchUnknownTemplateDoesNotAbortBatch(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	d := NewDispatcher(ob, sender, nil)

	queue(t, ob, "no_such_template", map[string]string{})
	queue(t, ob, templateQuoteReceived, quoteReceivedPayload{CustomerName: "Jamie"})

	delivered, err := d.Dispatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected the good row delivered, got %d", delivered)
	}
}

func TestDispatchReclaimsOrphanedProcessingRows(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	d := NewDispatcher(ob, sender, nil)

	// Simulate a worker that claimed the row and died before marking it.
	id := queue(t, ob, templateQuoteReceived, quoteReceivedPayload{CustomerName: "Jamie"})
	if _, err := ob.ClaimPending(context.Background(), 10); err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	ob.claimedAt[id] = time.Now().Add(-2 * staleProcessingAfter)

	delivered, err := d.Dispatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected the orphaned row delivered, got %d", delivered)
	}
	if ob.rows[id].Status != outbox.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", ob.rows[id].Status)
	}
}

func TestDispatchLeavesFreshProcessingRowsAlone(t *testing.T) {
	ob := newFakeOutbox()
	sender := &fakeSender{}
	d := NewDispatcher(ob, sender, nil)

	id := queue(t, ob, templateQuoteReceived, quoteReceivedPayload{CustomerName: "Jamie"})
	if _, err := ob.ClaimPending(context.Background(), 10); err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}

	delivered, err := d.Dispatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected no delivery for an in-flight row, got %d", delivered)
	}
	if ob.rows[id].Status != outbox.StatusProcessing {
		t.Fatalf("expected processing, got %s", ob.rows[id].Status)
	}
}

// ── subscriber tests ──────────────────────────────────────────────────────────

type fakeQuoteReader struct {
	quote *quotesrepo.QuoteRequest
}

func (f *fakeQuoteReader) GetByID(_ context.Context, _ uuid.UUID) (*quotesrepo.QuoteRequest, error) {
	return f.quote, nil
}

type fakeCleanerReader struct {
	cleaner *cleanertransport.CleanerResponse
}

func (f *fakeCleanerReader) GetByID(_ context.Context, _ uuid.UUID) (*cleanertransport.CleanerResponse, error) {
	return f.cleaner, nil
}

type fakeBaseURL struct{}

func (fakeBaseURL) GetAppBaseURL() string { return "https://app.example.com" }

func TestQuotePricedQueuesQuoteReadyEmail(t *testing.T) {
	ob := newFakeOutbox()
	quoteID := uuid.New()
	quotes := &fakeQuoteReader{quote: &quotesrepo.QuoteRequest{
		ID:            quoteID,
		CustomerName:  "Jamie Doe",
		CustomerEmail: "jamie@example.com",
		Address:       "12 Main St",
	}}
	bus := platformevents.NewInMemoryBus(nil)
	NewModule(bus, ob, quotes, &fakeCleanerReader{}, fakeBaseURL{}, nil)

	err := bus.PublishSync(context.Background(), events.QuotePriced{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quoteID,
		CustomerEmail: "jamie@example.com",
		TotalCents:    22600,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(ob.rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(ob.rows))
	}
	for _, rec := range ob.rows {
		if rec.Template != templateQuoteReady {
			t.Fatalf("expected %s, got %s", templateQuoteReady, rec.Template)
		}
		if rec.Recipient != "jamie@example.com" {
			t.Fatalf("unexpected recipient %s", rec.Recipient)
		}
		var p quoteReadyPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if p.TotalCents != 22600 {
			t.Fatalf("expected total 22600, got %d", p.TotalCents)
		}
		if p.QuoteURL != "https://app.example.com/quotes/"+quoteID.String() {
			t.Fatalf("unexpected quote url %s", p.QuoteURL)
		}
	}
}

func TestAssignmentCreatedQueuesOfferEmail(t *testing.T) {
	ob := newFakeOutbox()
	quotes := &fakeQuoteReader{quote: &quotesrepo.QuoteRequest{
		ID:      uuid.New(),
		Address: "12 Main St",
	}}
	cleaners := &fakeCleanerReader{cleaner: &cleanertransport.CleanerResponse{
		ID:    uuid.New(),
		Name:  "Pat Cleaner",
		Email: "pat@example.com",
	}}
	bus := platformevents.NewInMemoryBus(nil)
	NewModule(bus, ob, quotes, cleaners, fakeBaseURL{}, nil)

	err := bus.PublishSync(context.Background(), events.AssignmentCreated{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     quotes.quote.ID,
		CleanerID:   cleaners.cleaner.ID,
		PayoutCents: 9000,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(ob.rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(ob.rows))
	}
	for _, rec := range ob.rows {
		if rec.Template != templateAssignmentOffer {
			t.Fatalf("expected %s, got %s", templateAssignmentOffer, rec.Template)
		}
		if rec.Recipient != "pat@example.com" {
			t.Fatalf("unexpected recipient %s", rec.Recipient)
		}
	}
}
