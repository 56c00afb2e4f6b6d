// Package service implements the assignment matcher binding paid quotes to
// approved cleaners.
package service

import (
	"context"
	"time"

	"cleanbroker/internal/assignments/repository"
	"cleanbroker/internal/assignments/transport"
	cleanertransport "cleanbroker/internal/cleaners/transport"
	"cleanbroker/internal/events"
	quotesrepo "cleanbroker/internal/quotes/repository"
	"cleanbroker/platform/apperr"
	"cleanbroker/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the assignment service needs.
type Store interface {
	Create(ctx context.Context, a *repository.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Assignment, error)
	GetActiveByQuote(ctx context.Context, quoteID uuid.UUID) (*repository.Assignment, error)
	HasCompletedByQuote(ctx context.Context, quoteID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next repository.Status, cleanerNotes *string) error
	Cancel(ctx context.Context, id uuid.UUID) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status repository.PaymentStatus) error
	UpdatePayout(ctx context.Context, id uuid.UUID, amountCents int64) error
	ListByCleaner(ctx context.Context, cleanerID uuid.UUID) ([]repository.Assignment, error)
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]repository.Assignment, error)
}

// QuoteReader is the narrow view of the quotes store the matcher needs to
// check the paid precondition. Satisfied by the quotes repository.
type QuoteReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*quotesrepo.QuoteRequest, error)
}

// CleanerReader checks cleaner accounts. Satisfied by the cleaners service.
type CleanerReader interface {
	CheckApproved(ctx context.Context, id uuid.UUID) (*cleanertransport.CleanerResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*cleanertransport.CleanerResponse, error)
}

// BookingMarker moves the quote's booking when the cleaner starts the job.
type BookingMarker interface {
	MarkInProgress(ctx context.Context, quoteID uuid.UUID) error
}

// Service provides business logic for cleaner assignments.
type Service struct {
	store    Store
	quotes   QuoteReader
	cleaners CleanerReader
	bookings BookingMarker
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new assignments service.
func New(store Store, quotes QuoteReader, cleaners CleanerReader, bookings BookingMarker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		quotes:   quotes,
		cleaners: cleaners,
		bookings: bookings,
		bus:      bus,
		log:      log,
	}
}

// Assign binds a quote to a cleaner with an admin-supplied payout.
// Preconditions: the quote has reached paid, the cleaner is approved, and no
// other active assignment exists. Reassignment requires cancelling or
// rejecting the prior assignment first; superseded rows are kept.
func (s *Service) Assign(ctx context.Context, req transport.AssignRequest) (*transport.AssignmentResponse, error) {
	quote, err := s.quotes.GetByID(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if !quote.Status.AtLeastPaid() {
		return nil, apperr.PreconditionFailed("quote has not been paid")
	}

	cleaner, err := s.cleaners.CheckApproved(ctx, req.CleanerID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.GetActiveByQuote(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.PreconditionFailed("quote already has an active assignment")
	}

	now := time.Now()
	assignment := repository.Assignment{
		ID:                 uuid.New(),
		QuoteID:            req.QuoteID,
		CleanerID:          req.CleanerID,
		Status:             repository.StatusPending,
		PaymentAmountCents: req.PaymentAmountCents,
		PaymentStatus:      repository.PaymentPending,
		AdminNotes:         req.AdminNotes,
		AssignedAt:         now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, &assignment); err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Info("cleaner assigned",
			"assignmentId", assignment.ID.String(),
			"quoteId", assignment.QuoteID.String(),
			"cleanerId", assignment.CleanerID.String(),
		)
	}

	s.publish(ctx, events.AssignmentCreated{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		QuoteID:      assignment.QuoteID,
		CleanerID:    assignment.CleanerID,
		CleanerEmail: cleaner.Email,
		PayoutCents:  assignment.PaymentAmountCents,
	})

	return toResponse(&assignment), nil
}

// Accept is the cleaner accepting a pending assignment.
func (s *Service) Accept(ctx context.Context, cleanerID, assignmentID uuid.UUID, notes *string) (*transport.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, cleanerID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, assignment.ID, repository.StatusPending, repository.StatusAccepted, notes); err != nil {
		return nil, err
	}

	s.publish(ctx, events.AssignmentAccepted{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		QuoteID:      assignment.QuoteID,
		CleanerID:    assignment.CleanerID,
	})

	return s.refresh(ctx, assignment.ID)
}

// Reject is the cleaner rejecting a pending assignment, freeing the quote
// for reassignment.
func (s *Service) Reject(ctx context.Context, cleanerID, assignmentID uuid.UUID, notes *string) (*transport.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, cleanerID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, assignment.ID, repository.StatusPending, repository.StatusRejected, notes); err != nil {
		return nil, err
	}

	var reason string
	if notes != nil {
		reason = *notes
	}
	s.publish(ctx, events.AssignmentRejected{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		QuoteID:      assignment.QuoteID,
		CleanerID:    assignment.CleanerID,
		Reason:       reason,
	})

	return s.refresh(ctx, assignment.ID)
}

// Start is the cleaner beginning the job. The quote's booking follows.
func (s *Service) Start(ctx context.Context, cleanerID, assignmentID uuid.UUID) (*transport.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, cleanerID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, assignment.ID, repository.StatusAccepted, repository.StatusInProgress, nil); err != nil {
		return nil, err
	}
	if err := s.bookings.MarkInProgress(ctx, assignment.QuoteID); err != nil {
		return nil, err
	}
	return s.refresh(ctx, assignment.ID)
}

// Complete is the cleaner finishing the job. The quote itself moves to
// completed through the quote lifecycle, which checks this assignment.
func (s *Service) Complete(ctx context.Context, cleanerID, assignmentID uuid.UUID, notes *string) (*transport.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, cleanerID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, assignment.ID, repository.StatusInProgress, repository.StatusCompleted, notes); err != nil {
		return nil, err
	}
	return s.refresh(ctx, assignment.ID)
}

// Cancel is the admin forcing an assignment to cancelled from any
// non-terminal status.
func (s *Service) Cancel(ctx context.Context, assignmentID uuid.UUID) (*transport.AssignmentResponse, error) {
	assignment, err := s.store.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Cancel(ctx, assignment.ID); err != nil {
		return nil, err
	}

	cleanerEmail := ""
	if cleaner, err := s.cleaners.GetByID(ctx, assignment.CleanerID); err == nil {
		cleanerEmail = cleaner.Email
	}
	s.publish(ctx, events.AssignmentCancelled{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		QuoteID:      assignment.QuoteID,
		CleanerID:    assignment.CleanerID,
		CleanerEmail: cleanerEmail,
	})

	return s.refresh(ctx, assignment.ID)
}

// UpdatePaymentStatus advances the payout status. Once paid, the payout is
// frozen: neither the status nor the amount may change.
func (s *Service) UpdatePaymentStatus(ctx context.Context, assignmentID uuid.UUID, status repository.PaymentStatus) (*transport.AssignmentResponse, error) {
	assignment, err := s.store.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.PaymentStatus == repository.PaymentPaid && status != repository.PaymentPaid {
		return nil, apperr.PreconditionFailed("payout is already paid")
	}
	if err := s.store.UpdatePaymentStatus(ctx, assignment.ID, status); err != nil {
		return nil, err
	}
	return s.refresh(ctx, assignment.ID)
}

// UpdatePayout changes the payout amount while it is still unpaid.
func (s *Service) UpdatePayout(ctx context.Context, assignmentID uuid.UUID, amountCents int64) (*transport.AssignmentResponse, error) {
	if err := s.store.UpdatePayout(ctx, assignmentID, amountCents); err != nil {
		return nil, err
	}
	return s.refresh(ctx, assignmentID)
}

// GetByID retrieves an assignment without scoping; handlers enforce cleaner
// ownership where needed.
func (s *Service) GetByID(ctx context.Context, assignmentID uuid.UUID) (*transport.AssignmentResponse, error) {
	assignment, err := s.store.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return toResponse(assignment), nil
}

// GetForCleaner retrieves an assignment scoped to its cleaner.
func (s *Service) GetForCleaner(ctx context.Context, cleanerID, assignmentID uuid.UUID) (*transport.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, cleanerID, assignmentID)
	if err != nil {
		return nil, err
	}
	return toResponse(assignment), nil
}

// ListByCleaner returns all assignments for a cleaner.
func (s *Service) ListByCleaner(ctx context.Context, cleanerID uuid.UUID) ([]transport.AssignmentResponse, error) {
	assignments, err := s.store.ListByCleaner(ctx, cleanerID)
	if err != nil {
		return nil, err
	}
	return toResponses(assignments), nil
}

// ListByQuote returns the assignment history of a quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]transport.AssignmentResponse, error) {
	assignments, err := s.store.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	return toResponses(assignments), nil
}

// HasCompletedAssignment reports whether the quote has a completed
// assignment. Used as the quote-completion precondition.
func (s *Service) HasCompletedAssignment(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	return s.store.HasCompletedByQuote(ctx, quoteID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// getOwned loads an assignment and hides it from foreign cleaners.
func (s *Service) getOwned(ctx context.Context, cleanerID, assignmentID uuid.UUID) (*repository.Assignment, error) {
	assignment, err := s.store.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.CleanerID != cleanerID {
		return nil, apperr.NotFound("assignment not found")
	}
	return assignment, nil
}

func (s *Service) refresh(ctx context.Context, id uuid.UUID) (*transport.AssignmentResponse, error) {
	assignment, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(assignment), nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func toResponse(a *repository.Assignment) *transport.AssignmentResponse {
	return &transport.AssignmentResponse{
		ID:                 a.ID,
		QuoteID:            a.QuoteID,
		CleanerID:          a.CleanerID,
		Status:             string(a.Status),
		PaymentAmountCents: a.PaymentAmountCents,
		PaymentStatus:      string(a.PaymentStatus),
		AdminNotes:         a.AdminNotes,
		CleanerNotes:       a.CleanerNotes,
		AssignedAt:         a.AssignedAt,
		AcceptedAt:         a.AcceptedAt,
		CompletedAt:        a.CompletedAt,
	}
}

func toResponses(assignments []repository.Assignment) []transport.AssignmentResponse {
	responses := make([]transport.AssignmentResponse, len(assignments))
	for i := range assignments {
		responses[i] = *toResponse(&assignments[i])
	}
	return responses
}
