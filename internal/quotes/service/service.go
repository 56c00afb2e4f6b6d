// Package service implements the quote lifecycle operations on top of the
// transition dispatcher in the domain package.
package service

import (
	"context"
	"time"

	"cleanbroker/internal/events"
	"cleanbroker/internal/quotes/domain"
	"cleanbroker/internal/quotes/repository"
	"cleanbroker/internal/quotes/transport"
	"cleanbroker/platform/apperr"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a quote operation. Every entry point
// receives one; the service performs ownership checks against it but never
// authentication.
type Actor struct {
	ID   uuid.UUID
	Role domain.Actor
}

// Store is the persistence surface the quote service needs. Implemented by
// the pgx repository; tests substitute an in-memory fake.
type Store interface {
	CreateWithSelections(ctx context.Context, quote *repository.QuoteRequest, selections []repository.Selection) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.QuoteRequest, error)
	GetSelections(ctx context.Context, quoteID uuid.UUID) ([]repository.Selection, error)
	SetPricing(ctx context.Context, quoteID uuid.UUID, expected domain.Status, pricing repository.Pricing) error
	RecordCounterOffer(ctx context.Context, quoteID uuid.UUID, proposedCents int64, notes *string, selections []repository.Selection) error
	RecordDecline(ctx context.Context, quoteID uuid.UUID, expected domain.Status, reason *string) error
	UpdateStatus(ctx context.Context, quoteID uuid.UUID, expected, next domain.Status) error
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	CountsByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// CatalogReader is the narrow view of the service catalog the pricing path
// needs: the current price of every active additional service.
type CatalogReader interface {
	ActivePrices(ctx context.Context) (map[string]int64, error)
}

// BookingWriter is the narrow booking surface driven by quote transitions.
type BookingWriter interface {
	// EnsurePending creates a booking for the quote if no active one
	// exists; a stale active booking is reused, never duplicated.
	EnsurePending(ctx context.Context, quoteID uuid.UUID) error
	// Schedule sets the confirmed service date on the quote's booking.
	Schedule(ctx context.Context, quoteID uuid.UUID, at time.Time) error
	// MarkCompleted moves the quote's booking to completed.
	MarkCompleted(ctx context.Context, quoteID uuid.UUID) error
}

// AssignmentReader checks the assignment precondition for completing a quote.
type AssignmentReader interface {
	HasCompletedAssignment(ctx context.Context, quoteID uuid.UUID) (bool, error)
}

// Service provides business logic for the quote lifecycle.
type Service struct {
	store       Store
	catalog     CatalogReader
	bookings    BookingWriter
	assignments AssignmentReader
	bus         events.Bus
	log         *logger.Logger
}

// New creates a new quotes service.
func New(store Store, catalog CatalogReader, bookings BookingWriter, assignments AssignmentReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		bookings:    bookings,
		assignments: assignments,
		bus:         bus,
		log:         log,
	}
}

// Submit creates a new quote request in pending status with an initial
// server-computed price.
func (s *Service) Submit(ctx context.Context, actor Actor, req transport.SubmitQuoteRequest) (*transport.QuoteResponse, error) {
	if actor.Role != domain.ActorCustomer && actor.Role != domain.ActorAdmin {
		return nil, apperr.Forbidden("only customers may submit quote requests")
	}
	if len(req.ProposedDates) > 3 {
		return nil, apperr.Validation("at most three proposed dates are allowed")
	}
	tier := domain.ServiceTier(req.ServiceTier)
	if !tier.Valid() {
		return nil, apperr.Validation("unknown service tier")
	}

	prices, err := s.catalog.ActivePrices(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := ComputeTotal(StructuralInputs{
		Tier:          tier,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		SquareFootage: req.SquareFootage,
	}, req.AdditionalServices, prices)

	now := time.Now()
	quote := repository.QuoteRequest{
		ID:                   uuid.New(),
		CustomerID:           actor.ID,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        req.CustomerPhone,
		Address:              req.Address,
		PropertyType:         req.PropertyType,
		Bedrooms:             req.Bedrooms,
		Bathrooms:            req.Bathrooms,
		SquareFootage:        req.SquareFootage,
		ServiceTier:          tier,
		Frequency:            req.Frequency,
		HasPets:              req.HasPets,
		SpecialInstructions:  req.SpecialInstructions,
		Status:               domain.StatusPending,
		BasePriceCents:       breakdown.BaseCents,
		AdditionalPriceCents: breakdown.AdditionalCents,
		TotalPriceCents:      breakdown.TotalCents,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	assignProposedDates(&quote, req.ProposedDates)

	selections := toSelectionRows(quote.ID, breakdown.Selections, now)
	if err := s.store.CreateWithSelections(ctx, &quote, selections); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		ServiceTier:   string(quote.ServiceTier),
	})

	return s.toResponse(ctx, &quote)
}

// Price is the admin pricing a pending quote (or re-pricing after a
// counter-offer). The base price is recomputed from the structural inputs;
// the selection set is replaced wholesale with fresh catalog snapshots.
func (s *Service) Price(ctx context.Context, actor Actor, quoteID uuid.UUID, req transport.PriceQuoteRequest) (*transport.QuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	prices, err := s.catalog.ActivePrices(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := ComputeTotal(StructuralInputs{
		Tier:          quote.ServiceTier,
		Bedrooms:      quote.Bedrooms,
		Bathrooms:     quote.Bathrooms,
		SquareFootage: quote.SquareFootage,
	}, req.AdditionalServices, prices)

	cmd := domain.SetPrice{
		BasePriceCents:       breakdown.BaseCents,
		AdditionalPriceCents: breakdown.AdditionalCents,
		TotalPriceCents:      breakdown.TotalCents,
	}
	if _, err := s.applyLogged(quote, cmd, actor.Role); err != nil {
		return nil, err
	}

	pricing := repository.Pricing{
		BasePriceCents:       breakdown.BaseCents,
		AdditionalPriceCents: breakdown.AdditionalCents,
		TotalPriceCents:      breakdown.TotalCents,
		AdminNotes:           req.AdminNotes,
		Selections:           toSelectionRows(quote.ID, breakdown.Selections, time.Now()),
	}
	if err := s.store.SetPricing(ctx, quote.ID, quote.Status, pricing); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuotePriced{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		TotalCents:    breakdown.TotalCents,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// Accept is the customer accepting the offered price. A booking is ensured
// as part of the transition; retrying never stacks a second booking.
func (s *Service) Accept(ctx context.Context, actor Actor, quoteID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.getOwned(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}

	next, err := s.applyLogged(quote, domain.Accept{}, actor.Role)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, quote.ID, quote.Status, next); err != nil {
		return nil, err
	}
	if err := s.bookings.EnsurePending(ctx, quote.ID); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteAccepted{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		TotalCents:    quote.TotalPriceCents,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// Decline is the customer declining. Terminal; the quote is kept for history.
func (s *Service) Decline(ctx context.Context, actor Actor, quoteID uuid.UUID, req transport.DeclineQuoteRequest) (*transport.QuoteResponse, error) {
	quote, err := s.getOwned(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}

	if _, err := s.applyLogged(quote, domain.Decline{}, actor.Role); err != nil {
		return nil, err
	}
	if err := s.store.RecordDecline(ctx, quote.ID, quote.Status, req.Reason); err != nil {
		return nil, err
	}

	var reason string
	if req.Reason != nil {
		reason = *req.Reason
	}
	s.publish(ctx, events.QuoteDeclined{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		Reason:        reason,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// CounterOffer is the customer proposing a different total and a replacement
// set of selections. The proposed total is stored as-is for admin review;
// this is the one place the total may diverge from base plus additional.
func (s *Service) CounterOffer(ctx context.Context, actor Actor, quoteID uuid.UUID, req transport.CounterOfferRequest) (*transport.QuoteResponse, error) {
	quote, err := s.getOwned(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}

	cmd := domain.CounterOffer{ProposedTotalCents: req.ProposedTotalCents}
	if _, err := s.applyLogged(quote, cmd, actor.Role); err != nil {
		return nil, err
	}

	now := time.Now()
	selections := make([]repository.Selection, len(req.Selections))
	for i, sel := range req.Selections {
		selections[i] = repository.Selection{
			ID:         uuid.New(),
			QuoteID:    quote.ID,
			ServiceKey: sel.ServiceKey,
			PriceCents: sel.PriceCents,
			CreatedAt:  now,
		}
	}
	if err := s.store.RecordCounterOffer(ctx, quote.ID, req.ProposedTotalCents, req.Notes, selections); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteCounterOffered{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		ProposedCents: req.ProposedTotalCents,
		PreviousCents: quote.TotalPriceCents,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// Schedule confirms a service date on a paid quote. When the customer
// proposed dates, the chosen date must be one of them.
func (s *Service) Schedule(ctx context.Context, actor Actor, quoteID uuid.UUID, req transport.ScheduleQuoteRequest) (*transport.QuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	next, err := s.applyLogged(quote, domain.Schedule{ScheduledAt: req.ScheduledAt}, actor.Role)
	if err != nil {
		return nil, err
	}
	if !dateProposed(quote, req.ScheduledAt) {
		return nil, apperr.PreconditionFailed("scheduled date must be one of the customer's proposed dates")
	}

	if err := s.store.UpdateStatus(ctx, quote.ID, quote.Status, next); err != nil {
		return nil, err
	}
	if err := s.bookings.Schedule(ctx, quote.ID, req.ScheduledAt); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteScheduled{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
		ScheduledAt:   req.ScheduledAt,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// Complete marks the service as performed. Requires the cleaner assignment
// to be completed first.
func (s *Service) Complete(ctx context.Context, actor Actor, quoteID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	next, err := s.applyLogged(quote, domain.Complete{}, actor.Role)
	if err != nil {
		return nil, err
	}

	done, err := s.assignments.HasCompletedAssignment(ctx, quote.ID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, apperr.PreconditionFailed("cleaner assignment is not completed")
	}

	if err := s.store.UpdateStatus(ctx, quote.ID, quote.Status, next); err != nil {
		return nil, err
	}
	if err := s.bookings.MarkCompleted(ctx, quote.ID); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteCompleted{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       quote.ID,
		CustomerID:    quote.CustomerID,
		CustomerEmail: quote.CustomerEmail,
	})

	return s.GetByID(ctx, actor, quote.ID)
}

// GetByID retrieves a quote visible to the actor. Customers only see their
// own quotes; a foreign quote reads as not found, not forbidden.
func (s *Service) GetByID(ctx context.Context, actor Actor, quoteID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.getOwned(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, quote)
}

// List returns quote requests filtered and paginated. Customers are always
// scoped to their own quotes regardless of the requested filter.
func (s *Service) List(ctx context.Context, actor Actor, query transport.ListQuotesQuery) (*transport.ListQuotesResponse, error) {
	params := repository.ListParams{
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 20
	}
	if query.Status != "" {
		status := domain.Status(query.Status)
		params.Status = &status
	}
	if actor.Role == domain.ActorCustomer {
		customerID := actor.ID
		params.CustomerID = &customerID
	}

	result, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuoteResponse, len(result.Items))
	for i := range result.Items {
		resp, err := s.toResponse(ctx, &result.Items[i])
		if err != nil {
			return nil, err
		}
		items[i] = *resp
	}

	return &transport.ListQuotesResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Stats returns per-status counts for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (*transport.StatsResponse, error) {
	counts, err := s.store.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	var total int
	for _, n := range counts {
		total += n
	}
	return &transport.StatsResponse{Counts: counts, Total: total}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *Service) getOwned(ctx context.Context, actor Actor, quoteID uuid.UUID) (*repository.QuoteRequest, error) {
	quote, err := s.store.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.ActorCustomer && quote.CustomerID != actor.ID {
		return nil, apperr.NotFound("quote not found")
	}
	return quote, nil
}

func (s *Service) applyLogged(quote *repository.QuoteRequest, cmd domain.Transition, actor domain.Actor) (domain.Status, error) {
	next, err := domain.Apply(quote.Status, cmd, actor)
	if err != nil {
		if s.log != nil {
			s.log.TransitionRejected(quote.ID.String(), string(quote.Status), cmd.Event(), err)
		}
		return "", err
	}
	return next, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) toResponse(ctx context.Context, quote *repository.QuoteRequest) (*transport.QuoteResponse, error) {
	selections, err := s.store.GetSelections(ctx, quote.ID)
	if err != nil {
		return nil, err
	}

	selectionResponses := make([]transport.SelectionResponse, len(selections))
	for i, sel := range selections {
		selectionResponses[i] = transport.SelectionResponse{
			ServiceKey: sel.ServiceKey,
			PriceCents: sel.PriceCents,
		}
	}

	return &transport.QuoteResponse{
		ID:                   quote.ID,
		CustomerID:           quote.CustomerID,
		CustomerName:         quote.CustomerName,
		CustomerEmail:        quote.CustomerEmail,
		CustomerPhone:        quote.CustomerPhone,
		Address:              quote.Address,
		PropertyType:         quote.PropertyType,
		Bedrooms:             quote.Bedrooms,
		Bathrooms:            quote.Bathrooms,
		SquareFootage:        quote.SquareFootage,
		ServiceTier:          string(quote.ServiceTier),
		Frequency:            quote.Frequency,
		HasPets:              quote.HasPets,
		ProposedDates:        proposedDates(quote),
		SpecialInstructions:  quote.SpecialInstructions,
		Status:               quote.Status,
		BasePriceCents:       quote.BasePriceCents,
		AdditionalPriceCents: quote.AdditionalPriceCents,
		TotalPriceCents:      quote.TotalPriceCents,
		SuggestedPriceCents:  quote.SuggestedPriceCents,
		AdminNotes:           quote.AdminNotes,
		CustomerNotes:        quote.CustomerNotes,
		Selections:           selectionResponses,
		CreatedAt:            quote.CreatedAt,
		UpdatedAt:            quote.UpdatedAt,
	}, nil
}

func assignProposedDates(quote *repository.QuoteRequest, dates []time.Time) {
	slots := []**time.Time{&quote.ProposedDate1, &quote.ProposedDate2, &quote.ProposedDate3}
	for i := range dates {
		if i >= len(slots) {
			break
		}
		d := dates[i]
		*slots[i] = &d
	}
}

func proposedDates(quote *repository.QuoteRequest) []time.Time {
	var dates []time.Time
	for _, d := range []*time.Time{quote.ProposedDate1, quote.ProposedDate2, quote.ProposedDate3} {
		if d != nil {
			dates = append(dates, *d)
		}
	}
	return dates
}

// dateProposed reports whether the chosen date matches one of the customer's
// proposed dates. A quote with no proposed dates accepts any date.
func dateProposed(quote *repository.QuoteRequest, at time.Time) bool {
	proposed := proposedDates(quote)
	if len(proposed) == 0 {
		return true
	}
	for _, d := range proposed {
		if d.Equal(at) {
			return true
		}
	}
	return false
}

func toSelectionRows(quoteID uuid.UUID, snapshots []domain.SelectionSnapshot, at time.Time) []repository.Selection {
	rows := make([]repository.Selection, len(snapshots))
	for i, snap := range snapshots {
		rows[i] = repository.Selection{
			ID:         uuid.New(),
			QuoteID:    quoteID,
			ServiceKey: snap.ServiceKey,
			PriceCents: snap.PriceCents,
			CreatedAt:  at,
		}
	}
	return rows
}
