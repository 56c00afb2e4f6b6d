// Package payments provides the payment reconciliation domain module.
package payments

import (
	apphttp "cleanbroker/internal/http"
	"cleanbroker/internal/payments/handler"
	"cleanbroker/internal/payments/repository"
	"cleanbroker/internal/payments/service"
	"cleanbroker/platform/events"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the payments domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new payments module with all dependencies wired.
func NewModule(
	pool *pgxpool.Pool,
	quotes service.QuoteMarker,
	bookings service.BookingConfirmer,
	eventBus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotes, bookings, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "payments"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterWebhookRoutes(ctx.V1, ctx.WebhookRateLimiter)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/transactions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
