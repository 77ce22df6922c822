package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/admin"
)

// TenantHandler exposes tenant administration endpoints
type TenantHandler struct {
	BaseHandler
	service *admin.TenantService
}

// NewTenantHandler creates a tenant handler
func NewTenantHandler(service *admin.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// RegisterRoutes registers tenant routes
func (h *TenantHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/tenants", h.Register)
	r.GET("/tenants/:id", h.Get)
	r.PUT("/tenants/:id/credentials", h.RotateCredential)
	r.PUT("/tenants/:id/webhook-secret", h.RotateWebhookSecret)
	r.DELETE("/tenants/:id", h.Deactivate)
}

// Register onboards a new shop
func (h *TenantHandler) Register(c *gin.Context) {
	var req admin.RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a tenant by ID
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RotateCredential replaces the tenant's storefront access token
func (h *TenantHandler) RotateCredential(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req admin.RotateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.RotateCredential(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RotateWebhookSecret replaces the tenant's webhook signing secret
func (h *TenantHandler) RotateWebhookSecret(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req admin.RotateWebhookSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.RotateWebhookSecret(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate retires a tenant. Deliveries and polls stop accepting it
// once the status flips.
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	resp, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
