// Package catalog provides the additional-service catalog domain module.
package catalog

import (
	"cleanbroker/internal/catalog/handler"
	"cleanbroker/internal/catalog/repository"
	"cleanbroker/internal/catalog/service"
	apphttp "cleanbroker/internal/http"
	"cleanbroker/platform/config"
	"cleanbroker/platform/logger"
	"cleanbroker/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module represents the catalog domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new catalog module. cache may be nil when Redis is
// not configured.
func NewModule(
	pool *pgxpool.Pool,
	cache *redis.Client,
	cfg config.CatalogConfig,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/catalog"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
