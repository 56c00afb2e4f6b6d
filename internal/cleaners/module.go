// Package cleaners provides the cleaner account domain module.
package cleaners

import (
	"cleanbroker/internal/cleaners/handler"
	"cleanbroker/internal/cleaners/repository"
	"cleanbroker/internal/cleaners/service"
	apphttp "cleanbroker/internal/http"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the cleaners domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new cleaners module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "cleaners"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCleanerRoutes(ctx.Cleaner)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/cleaners"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
