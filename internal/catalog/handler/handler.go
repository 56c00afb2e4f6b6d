// Package handler exposes catalog management over HTTP.
package handler

import (
	"net/http"

	"cleanbroker/internal/catalog/service"
	"cleanbroker/internal/catalog/transport"
	"cleanbroker/platform/httpkit"
	"cleanbroker/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes registers the admin catalog routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.PUT("/:key", h.Upsert)
	rg.POST("/:key/activate", h.Activate)
	rg.POST("/:key/deactivate", h.Deactivate)
}

func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Upsert(c *gin.Context) {
	var req transport.UpsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Upsert(c.Request.Context(), c.Param("key"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Activate(c *gin.Context) {
	if err := h.svc.Activate(c.Request.Context(), c.Param("key")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), c.Param("key")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
