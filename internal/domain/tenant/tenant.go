package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/shared"
)

// Status represents the lifecycle status of a tenant. Tenants are never
// deleted, only deactivated, so that ingested rows keep a valid owner.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

// Tenant is an isolated store whose ingested data must never be visible to
// or merged with another tenant's data. It carries the storefront connection
// details: shop domain, an opaque access token and the webhook shared secret.
type Tenant struct {
	shared.BaseEntity
	Name          string
	ShopDomain    string
	AccessToken   string
	WebhookSecret string
	Status        Status
	// SyncEnabled gates scheduled polling. It is switched off when the
	// storefront rejects the credential and back on when the credential
	// is rotated.
	SyncEnabled  bool
	SyncDisabled string // reason sync was disabled, empty while enabled
	Version      int
}

// NewTenant creates an active tenant ready for syncing
func NewTenant(name, shopDomain, accessToken, webhookSecret string) (*Tenant, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	domain, err := NormalizeShopDomain(shopDomain)
	if err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, ErrMissingCredential
	}
	if webhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	return &Tenant{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          name,
		ShopDomain:    domain,
		AccessToken:   accessToken,
		WebhookSecret: webhookSecret,
		Status:        StatusActive,
		SyncEnabled:   true,
		Version:       1,
	}, nil
}

// IsActive returns true if the tenant may own new ingested data
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// CanSync returns true if scheduled polling may run for this tenant
func (t *Tenant) CanSync() bool {
	return t.IsActive() && t.SyncEnabled
}

// Credentials returns the storefront credentials for outbound requests
func (t *Tenant) Credentials() integration.StoreCredentials {
	return integration.StoreCredentials{ShopDomain: t.ShopDomain, AccessToken: t.AccessToken}
}

// RotateCredential replaces the access token and re-enables syncing.
// Rotation is the only path that clears an auth-failure sync hold.
func (t *Tenant) RotateCredential(accessToken string) error {
	if accessToken == "" {
		return ErrMissingCredential
	}
	t.AccessToken = accessToken
	t.SyncEnabled = true
	t.SyncDisabled = ""
	t.Touch()
	t.Version++
	return nil
}

// RotateWebhookSecret replaces the webhook shared secret
func (t *Tenant) RotateWebhookSecret(secret string) error {
	if secret == "" {
		return ErrMissingWebhookSecret
	}
	t.WebhookSecret = secret
	t.Touch()
	t.Version++
	return nil
}

// DisableSync stops scheduled polling until the credential is rotated
func (t *Tenant) DisableSync(reason string) {
	t.SyncEnabled = false
	t.SyncDisabled = reason
	t.Touch()
	t.Version++
}

// Deactivate soft-deletes the tenant. Ingested rows are retained.
func (t *Tenant) Deactivate() error {
	if t.Status == StatusInactive {
		return shared.ErrInvalidState
	}
	t.Status = StatusInactive
	t.SyncEnabled = false
	t.Touch()
	t.Version++
	return nil
}

// NormalizeShopDomain lowercases and validates a storefront shop domain
func NormalizeShopDomain(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" || !strings.Contains(d, ".") || strings.ContainsAny(d, " /") {
		return "", ErrInvalidShopDomain
	}
	return d, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

// Domain errors
var (
	ErrInvalidShopDomain    = shared.NewDomainError("INVALID_SHOP_DOMAIN", "Shop domain is not a valid hostname")
	ErrMissingCredential    = shared.NewDomainError("MISSING_CREDENTIAL", "Access token is required")
	ErrMissingWebhookSecret = shared.NewDomainError("MISSING_WEBHOOK_SECRET", "Webhook secret is required")
)

// Repository defines persistence operations for tenants
type Repository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByShopDomain finds a tenant by its normalized shop domain
	FindByShopDomain(ctx context.Context, shopDomain string) (*Tenant, error)

	// FindSyncable returns all active tenants with syncing enabled
	FindSyncable(ctx context.Context) ([]Tenant, error)

	// Save creates or updates a tenant
	Save(ctx context.Context, t *Tenant) error
}
