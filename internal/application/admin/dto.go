package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
)

// RegisterTenantRequest carries the fields needed to connect a store
type RegisterTenantRequest struct {
	Name          string `json:"name" binding:"required"`
	ShopDomain    string `json:"shop_domain" binding:"required"`
	AccessToken   string `json:"access_token" binding:"required"`
	WebhookSecret string `json:"webhook_secret" binding:"required"`
}

// RotateCredentialRequest replaces a tenant's storefront access token
type RotateCredentialRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// RotateWebhookSecretRequest replaces a tenant's webhook shared secret
type RotateWebhookSecretRequest struct {
	WebhookSecret string `json:"webhook_secret" binding:"required"`
}

// TenantResponse is the API view of a tenant. Credential values are never
// echoed back; only their presence is reported.
type TenantResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ShopDomain    string    `json:"shop_domain"`
	Status        string    `json:"status"`
	SyncEnabled   bool      `json:"sync_enabled"`
	SyncDisabled  string    `json:"sync_disabled,omitempty"`
	HasCredential bool      `json:"has_credential"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewTenantResponse maps a tenant to its API view
func NewTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		ShopDomain:    t.ShopDomain,
		Status:        string(t.Status),
		SyncEnabled:   t.SyncEnabled,
		SyncDisabled:  t.SyncDisabled,
		HasCredential: t.AccessToken != "",
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
