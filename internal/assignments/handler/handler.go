// Package handler exposes cleaner assignments over HTTP.
package handler

import (
	"context"
	"net/http"

	"cleanbroker/internal/assignments/repository"
	"cleanbroker/internal/assignments/service"
	"cleanbroker/internal/assignments/transport"
	"cleanbroker/platform/httpkit"
	"cleanbroker/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for assignments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new assignments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes registers the admin assignment routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Assign)
	rg.GET("/quote/:quoteId", h.ListByQuote)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/payment-status", h.UpdatePaymentStatus)
	rg.POST("/:id/payout", h.UpdatePayout)
}

// RegisterCleanerRoutes registers the cleaner-facing assignment routes.
func (h *Handler) RegisterCleanerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.GetMine)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/complete", h.Complete)
}

func (h *Handler) Assign(c *gin.Context) {
	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
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

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdatePaymentStatus(c.Request.Context(), id, repository.PaymentStatus(req.PaymentStatus))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdatePayout(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdatePayout(c.Request.Context(), id, req.PaymentAmountCents)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListMine(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	result, err := h.svc.ListByCleaner(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetMine(c *gin.Context) {
	id, cleanerID, ok := idAndCleaner(c)
	if !ok {
		return
	}

	result, err := h.svc.GetForCleaner(c.Request.Context(), cleanerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Accept(c *gin.Context) {
	h.cleanerAction(c, h.svc.Accept)
}

func (h *Handler) Reject(c *gin.Context) {
	h.cleanerAction(c, h.svc.Reject)
}

func (h *Handler) Start(c *gin.Context) {
	id, cleanerID, ok := idAndCleaner(c)
	if !ok {
		return
	}

	result, err := h.svc.Start(c.Request.Context(), cleanerID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Complete(c *gin.Context) {
	h.cleanerAction(c, h.svc.Complete)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// cleanerAction runs a notes-carrying cleaner transition.
func (h *Handler) cleanerAction(c *gin.Context, fn func(ctx context.Context, cleanerID, id uuid.UUID, notes *string) (*transport.AssignmentResponse, error)) {
	id, cleanerID, ok := idAndCleaner(c)
	if !ok {
		return
	}

	var req transport.CleanerActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	result, err := fn(c.Request.Context(), cleanerID, id, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func idAndCleaner(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	id, ok := parseID(c)
	if !ok {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return id, identity.UserID(), true
}
