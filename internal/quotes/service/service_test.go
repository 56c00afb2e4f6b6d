package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleanbroker/internal/quotes/domain"
	"cleanbroker/internal/quotes/repository"
	"cleanbroker/internal/quotes/transport"
	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeStore struct {
	quotes     map[uuid.UUID]*repository.QuoteRequest
	selections map[uuid.UUID][]repository.Selection
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quotes:     make(map[uuid.UUID]*repository.QuoteRequest),
		selections: make(map[uuid.UUID][]repository.Selection),
	}
}

func (f *fakeStore) CreateWithSelections(_ context.Context, quote *repository.QuoteRequest, selections []repository.Selection) error {
	copied := *quote
	f.quotes[quote.ID] = &copied
	f.selections[quote.ID] = append([]repository.Selection(nil), selections...)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.QuoteRequest, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	copied := *q
	return &copied, nil
}

func (f *fakeStore) GetSelections(_ context.Context, quoteID uuid.UUID) ([]repository.Selection, error) {
	return append([]repository.Selection(nil), f.selections[quoteID]...), nil
}

func (f *fakeStore) SetPricing(_ context.Context, quoteID uuid.UUID, expected domain.Status, pricing repository.Pricing) error {
	q, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if q.Status != expected {
		return apperr.Conflict("quote was modified concurrently")
	}
	q.Status = domain.StatusQuoted
	q.BasePriceCents = pricing.BasePriceCents
	q.AdditionalPriceCents = pricing.AdditionalPriceCents
	q.TotalPriceCents = pricing.TotalPriceCents
	q.SuggestedPriceCents = nil
	if pricing.AdminNotes != nil {
		q.AdminNotes = pricing.AdminNotes
	}
	f.selections[quoteID] = append([]repository.Selection(nil), pricing.Selections...)
	return nil
}

func (f *fakeStore) RecordCounterOffer(_ context.Context, quoteID uuid.UUID, proposedCents int64, notes *string, selections []repository.Selection) error {
	q, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if q.Status != domain.StatusQuoted {
		return apperr.Conflict("quote was modified concurrently")
	}
	q.TotalPriceCents = proposedCents
	suggested := proposedCents
	q.SuggestedPriceCents = &suggested
	if notes != nil {
		q.CustomerNotes = notes
	}
	f.selections[quoteID] = append([]repository.Selection(nil), selections...)
	return nil
}

func (f *fakeStore) RecordDecline(_ context.Context, quoteID uuid.UUID, expected domain.Status, reason *string) error {
	q, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if q.Status != expected {
		return apperr.Conflict("quote was modified concurrently")
	}
	q.Status = domain.StatusDeclined
	if reason != nil {
		q.CustomerNotes = reason
	}
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, quoteID uuid.UUID, expected, next domain.Status) error {
	q, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if q.Status != expected {
		return apperr.Conflict("quote was modified concurrently")
	}
	q.Status = next
	return nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	var items []repository.QuoteRequest
	for _, q := range f.quotes {
		if params.Status != nil && q.Status != *params.Status {
			continue
		}
		if params.CustomerID != nil && q.CustomerID != *params.CustomerID {
			continue
		}
		items = append(items, *q)
	}
	return &repository.ListResult{
		Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1,
	}, nil
}

func (f *fakeStore) CountsByStatus(_ context.Context) (map[domain.Status]int, error) {
	counts := make(map[domain.Status]int)
	for _, q := range f.quotes {
		counts[q.Status]++
	}
	return counts, nil
}

type fakeCatalog struct {
	prices map[string]int64
}

func (f *fakeCatalog) ActivePrices(context.Context) (map[string]int64, error) {
	return f.prices, nil
}

type fakeBookings struct {
	ensured   int
	scheduled []time.Time
	completed int
}

func (f *fakeBookings) EnsurePending(context.Context, uuid.UUID) error { f.ensured++; return nil }
func (f *fakeBookings) Schedule(_ context.Context, _ uuid.UUID, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}
func (f *fakeBookings) MarkCompleted(context.Context, uuid.UUID) error { f.completed++; return nil }

type fakeAssignments struct {
	completed bool
}

func (f *fakeAssignments) HasCompletedAssignment(context.Context, uuid.UUID) (bool, error) {
	return f.completed, nil
}

type fixture struct {
	svc         *Service
	store       *fakeStore
	bookings    *fakeBookings
	assignments *fakeAssignments
}

func newFixture() *fixture {
	store := newFakeStore()
	bookings := &fakeBookings{}
	assignments := &fakeAssignments{}
	catalog := &fakeCatalog{prices: map[string]int64{
		"window_cleaning": 4000,
		"fridge_cleaning": 2500,
	}}
	svc := New(store, catalog, bookings, assignments, nil, nil)
	return &fixture{svc: svc, store: store, bookings: bookings, assignments: assignments}
}

func customerActor(id uuid.UUID) Actor { return Actor{ID: id, Role: domain.ActorCustomer} }
func adminActor() Actor                { return Actor{ID: uuid.New(), Role: domain.ActorAdmin} }

func submitQuote(t *testing.T, fx *fixture, customerID uuid.UUID) *transport.QuoteResponse {
	t.Helper()
	resp, err := fx.svc.Submit(context.Background(), customerActor(customerID), transport.SubmitQuoteRequest{
		CustomerName:       "Dana Reyes",
		CustomerEmail:      "dana@example.com",
		Address:            "12 Pine St",
		PropertyType:       "house",
		Bedrooms:           3,
		Bathrooms:          2,
		SquareFootage:      1200,
		ServiceTier:        "standard",
		Frequency:          "one_time",
		AdditionalServices: []string{"window_cleaning"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return resp
}

func priceQuote(t *testing.T, fx *fixture, quoteID uuid.UUID) {
	t.Helper()
	if _, err := fx.svc.Price(context.Background(), adminActor(), quoteID, transport.PriceQuoteRequest{
		AdditionalServices: []string{"window_cleaning"},
	}); err != nil {
		t.Fatalf("price failed: %v", err)
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != kind {
		t.Fatalf("expected error kind %v, got %v", kind, err)
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestSubmitComputesInitialPrice(t *testing.T) {
	fx := newFixture()
	resp := submitQuote(t, fx, uuid.New())

	if resp.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", resp.Status)
	}
	if resp.BasePriceCents != 18600 {
		t.Fatalf("expected base 18600, got %d", resp.BasePriceCents)
	}
	if resp.TotalPriceCents != 22600 {
		t.Fatalf("expected total 22600, got %d", resp.TotalPriceCents)
	}
	if len(resp.Selections) != 1 || resp.Selections[0].ServiceKey != "window_cleaning" {
		t.Fatalf("expected window_cleaning snapshotted, got %+v", resp.Selections)
	}
}

func TestAcceptRequiresQuotedStatus(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)

	_, err := fx.svc.Accept(context.Background(), customerActor(customerID), resp.ID)
	assertKind(t, err, apperr.KindInvalidTransition)
	if fx.bookings.ensured != 0 {
		t.Fatal("no booking may be created for a rejected transition")
	}
}

func TestAcceptCreatesBooking(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)
	priceQuote(t, fx, resp.ID)

	accepted, err := fx.svc.Accept(context.Background(), customerActor(customerID), resp.ID)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	if fx.bookings.ensured != 1 {
		t.Fatalf("expected one booking ensure call, got %d", fx.bookings.ensured)
	}

	// Double-accept must be rejected, not silently succeed.
	_, err = fx.svc.Accept(context.Background(), customerActor(customerID), resp.ID)
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestDeclineThenAcceptFails(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)
	priceQuote(t, fx, resp.ID)

	if _, err := fx.svc.Decline(context.Background(), customerActor(customerID), resp.ID, transport.DeclineQuoteRequest{}); err != nil {
		t.Fatalf("decline failed: %v", err)
	}

	_, err := fx.svc.Accept(context.Background(), customerActor(customerID), resp.ID)
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestCounterOfferReplacesLedgerAndKeepsQuoted(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)
	priceQuote(t, fx, resp.ID)

	countered, err := fx.svc.CounterOffer(context.Background(), customerActor(customerID), resp.ID, transport.CounterOfferRequest{
		ProposedTotalCents: 15000,
		Selections: []transport.CounterOfferSelection{
			{ServiceKey: "fridge_cleaning", PriceCents: 2500},
		},
	})
	if err != nil {
		t.Fatalf("counter-offer failed: %v", err)
	}

	if countered.Status != domain.StatusQuoted {
		t.Fatalf("counter-offer must keep status quoted, got %s", countered.Status)
	}
	if countered.TotalPriceCents != 15000 {
		t.Fatalf("expected total 15000, got %d", countered.TotalPriceCents)
	}
	if countered.SuggestedPriceCents == nil || *countered.SuggestedPriceCents != 15000 {
		t.Fatalf("expected suggested price 15000, got %v", countered.SuggestedPriceCents)
	}
	// The ledger is exactly the proposed set, never a union with the prior one.
	if len(countered.Selections) != 1 || countered.Selections[0].ServiceKey != "fridge_cleaning" {
		t.Fatalf("expected ledger replaced with fridge_cleaning only, got %+v", countered.Selections)
	}
}

func TestCounterOfferRejectedBeforePricing(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)

	_, err := fx.svc.CounterOffer(context.Background(), customerActor(customerID), resp.ID, transport.CounterOfferRequest{
		ProposedTotalCents: 10000,
	})
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestRePricingClearsSuggestedPrice(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)
	priceQuote(t, fx, resp.ID)

	if _, err := fx.svc.CounterOffer(context.Background(), customerActor(customerID), resp.ID, transport.CounterOfferRequest{
		ProposedTotalCents: 15000,
	}); err != nil {
		t.Fatalf("counter-offer failed: %v", err)
	}

	repriced, err := fx.svc.Price(context.Background(), adminActor(), resp.ID, transport.PriceQuoteRequest{
		AdditionalServices: []string{"window_cleaning"},
	})
	if err != nil {
		t.Fatalf("re-price failed: %v", err)
	}
	if repriced.SuggestedPriceCents != nil {
		t.Fatalf("re-pricing must clear the suggestion, got %v", repriced.SuggestedPriceCents)
	}
	if repriced.TotalPriceCents != repriced.BasePriceCents+repriced.AdditionalPriceCents {
		t.Fatalf("total %d != base %d + additional %d", repriced.TotalPriceCents, repriced.BasePriceCents, repriced.AdditionalPriceCents)
	}
}

func TestCustomerCannotTouchForeignQuote(t *testing.T) {
	fx := newFixture()
	owner := uuid.New()
	resp := submitQuote(t, fx, owner)
	priceQuote(t, fx, resp.ID)

	stranger := customerActor(uuid.New())

	if _, err := fx.svc.GetByID(context.Background(), stranger, resp.ID); err == nil {
		t.Fatal("expected not found for foreign quote")
	}
	_, err := fx.svc.Accept(context.Background(), stranger, resp.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestScheduleRequiresProposedDate(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	proposed := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

	submitted, err := fx.svc.Submit(context.Background(), customerActor(customerID), transport.SubmitQuoteRequest{
		CustomerName:  "Dana Reyes",
		CustomerEmail: "dana@example.com",
		Address:       "12 Pine St",
		PropertyType:  "house",
		Bedrooms:      2,
		Bathrooms:     1,
		SquareFootage: 800,
		ServiceTier:   "standard",
		Frequency:     "one_time",
		ProposedDates: []time.Time{proposed},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	priceQuote(t, fx, submitted.ID)
	if _, err := fx.svc.Accept(context.Background(), customerActor(customerID), submitted.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	fx.store.quotes[submitted.ID].Status = domain.StatusPaid

	_, err = fx.svc.Schedule(context.Background(), adminActor(), submitted.ID, transport.ScheduleQuoteRequest{
		ScheduledAt: proposed.Add(24 * time.Hour),
	})
	assertKind(t, err, apperr.KindPreconditionFailed)

	scheduled, err := fx.svc.Schedule(context.Background(), adminActor(), submitted.ID, transport.ScheduleQuoteRequest{
		ScheduledAt: proposed,
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if scheduled.Status != domain.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", scheduled.Status)
	}
	if len(fx.bookings.scheduled) != 1 || !fx.bookings.scheduled[0].Equal(proposed) {
		t.Fatalf("expected booking scheduled at %v, got %v", proposed, fx.bookings.scheduled)
	}
}

func TestCompleteRequiresCompletedAssignment(t *testing.T) {
	fx := newFixture()
	customerID := uuid.New()
	resp := submitQuote(t, fx, customerID)
	fx.store.quotes[resp.ID].Status = domain.StatusScheduled

	_, err := fx.svc.Complete(context.Background(), adminActor(), resp.ID)
	assertKind(t, err, apperr.KindPreconditionFailed)

	fx.assignments.completed = true
	completed, err := fx.svc.Complete(context.Background(), adminActor(), resp.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if fx.bookings.completed != 1 {
		t.Fatalf("expected booking completion, got %d calls", fx.bookings.completed)
	}
}

func TestListScopesCustomersToOwnQuotes(t *testing.T) {
	fx := newFixture()
	alice := uuid.New()
	bob := uuid.New()
	submitQuote(t, fx, alice)
	submitQuote(t, fx, alice)
	submitQuote(t, fx, bob)

	result, err := fx.svc.List(context.Background(), customerActor(alice), transport.ListQuotesQuery{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 quotes for alice, got %d", result.Total)
	}
	for _, item := range result.Items {
		if item.CustomerID != alice {
			t.Fatalf("listing leaked a foreign quote: %+v", item)
		}
	}

	adminResult, err := fx.svc.List(context.Background(), adminActor(), transport.ListQuotesQuery{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if adminResult.Total != 3 {
		t.Fatalf("expected 3 quotes for admin, got %d", adminResult.Total)
	}
}
