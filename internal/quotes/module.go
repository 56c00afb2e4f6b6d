// Package quotes provides the quote lifecycle domain module.
package quotes

import (
	apphttp "cleanbroker/internal/http"
	"cleanbroker/internal/quotes/handler"
	"cleanbroker/internal/quotes/repository"
	"cleanbroker/internal/quotes/service"
	"cleanbroker/platform/events"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired.
// The catalog, booking, and assignment collaborators come from their own
// modules via the narrow interfaces the service declares.
func NewModule(
	pool *pgxpool.Pool,
	catalog service.CatalogReader,
	bookings service.BookingWriter,
	assignments service.AssignmentReader,
	eventBus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, bookings, assignments, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotes"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
