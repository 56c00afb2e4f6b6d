// Package assignments provides the cleaner assignment domain module.
package assignments

import (
	"cleanbroker/internal/assignments/handler"
	"cleanbroker/internal/assignments/repository"
	"cleanbroker/internal/assignments/service"
	apphttp "cleanbroker/internal/http"
	"cleanbroker/platform/events"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the assignments domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new assignments module with all dependencies wired.
// The quote, cleaner, and booking collaborators come from their own modules
// via the narrow interfaces the service declares.
func NewModule(
	pool *pgxpool.Pool,
	quotes service.QuoteReader,
	cleaners service.CleanerReader,
	bookings service.BookingMarker,
	eventBus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotes, cleaners, bookings, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "assignments"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/assignments"))
	m.handler.RegisterCleanerRoutes(ctx.Cleaner.Group("/assignments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
