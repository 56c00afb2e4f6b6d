// Package service implements cleaner account management.
package service

import (
	"context"
	"time"

	"cleanbroker/internal/cleaners/repository"
	"cleanbroker/internal/cleaners/transport"
	"cleanbroker/platform/apperr"

	"github.com/google/uuid"
)

// Store is the persistence surface the cleaner service needs.
type Store interface {
	Create(ctx context.Context, cleaner *repository.Cleaner) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Cleaner, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status repository.Status) error
	List(ctx context.Context, status *repository.Status) ([]repository.Cleaner, error)
}

// Service provides business logic for cleaner accounts.
type Service struct {
	store Store
}

// New creates a new cleaners service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Register creates a cleaner account for the authenticated cleaner, starting
// in pending_review until an admin approves it.
func (s *Service) Register(ctx context.Context, cleanerID uuid.UUID, req transport.RegisterCleanerRequest) (*transport.CleanerResponse, error) {
	now := time.Now()
	cleaner := repository.Cleaner{
		ID:        cleanerID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Bio:       req.Bio,
		Status:    repository.StatusPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &cleaner); err != nil {
		return nil, err
	}
	return toResponse(&cleaner), nil
}

// GetByID retrieves a cleaner account.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.CleanerResponse, error) {
	cleaner, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(cleaner), nil
}

// Approve marks a cleaner as approved, making them eligible for assignments.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateStatus(ctx, id, repository.StatusApproved)
}

// Suspend marks a cleaner as suspended.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateStatus(ctx, id, repository.StatusSuspended)
}

// List retrieves cleaner accounts, optionally filtered by status.
func (s *Service) List(ctx context.Context, query transport.ListCleanersQuery) ([]transport.CleanerResponse, error) {
	var status *repository.Status
	if query.Status != "" {
		st := repository.Status(query.Status)
		status = &st
	}
	cleaners, err := s.store.List(ctx, status)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.CleanerResponse, len(cleaners))
	for i := range cleaners {
		responses[i] = *toResponse(&cleaners[i])
	}
	return responses, nil
}

// CheckApproved verifies the cleaner exists and is approved. Used by the
// assignment matcher as its cleaner precondition.
func (s *Service) CheckApproved(ctx context.Context, id uuid.UUID) (*transport.CleanerResponse, error) {
	cleaner, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cleaner.Status != repository.StatusApproved {
		return nil, apperr.PreconditionFailed("cleaner is not approved")
	}
	return toResponse(cleaner), nil
}

func toResponse(c *repository.Cleaner) *transport.CleanerResponse {
	return &transport.CleanerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Status:    string(c.Status),
		Rating:    c.Rating,
		Bio:       c.Bio,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
