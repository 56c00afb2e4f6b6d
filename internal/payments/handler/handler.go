// Package handler exposes the payment webhook and transaction history.
package handler

import (
	"net/http"

	"cleanbroker/internal/payments/service"
	"cleanbroker/internal/payments/transport"
	"cleanbroker/platform/httpkit"
	"cleanbroker/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterWebhookRoutes registers the provider-facing webhook route.
// The route is unauthenticated; idempotency and the rate limiter are the
// protections.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup, limiter *httpkit.WebhookRateLimiter) {
	rg.POST("/payments/webhook", limiter.RateLimit(), h.Webhook)
}

// RegisterAdminRoutes registers the admin transaction routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/quote/:quoteId", h.ListByQuote)
}

func (h *Handler) Webhook(c *gin.Context) {
	var req transport.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Record(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListByQuote(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("quoteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.ListByQuote(c.Request.Context(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
