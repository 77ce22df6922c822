package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/shared"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
)

// TenantService handles tenant lifecycle operations for the admin API
type TenantService struct {
	tenants tenant.Repository
	logger  *zap.Logger
}

// NewTenantService creates a tenant admin service
func NewTenantService(tenants tenant.Repository, log *zap.Logger) *TenantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantService{tenants: tenants, logger: log}
}

// Register connects a new store. The shop domain must not already be in use.
func (s *TenantService) Register(ctx context.Context, req RegisterTenantRequest) (*TenantResponse, error) {
	t, err := tenant.NewTenant(req.Name, req.ShopDomain, req.AccessToken, req.WebhookSecret)
	if err != nil {
		return nil, err
	}

	existing, err := s.tenants.FindByShopDomain(ctx, t.ShopDomain)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A tenant with this shop domain already exists")
	}

	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant registered",
		zap.String("tenant_id", t.ID.String()),
		zap.String("shop_domain", t.ShopDomain),
	)
	return NewTenantResponse(t), nil
}

// Get returns one tenant
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantResponse(t), nil
}

// RotateCredential replaces the storefront access token. Rotation clears an
// auth-failure sync hold, so polling resumes on the next sweep.
func (s *TenantService) RotateCredential(ctx context.Context, id uuid.UUID, req RotateCredentialRequest) (*TenantResponse, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.RotateCredential(req.AccessToken); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant credential rotated",
		zap.String("tenant_id", t.ID.String()),
		zap.String("shop_domain", t.ShopDomain),
	)
	return NewTenantResponse(t), nil
}

// RotateWebhookSecret replaces the webhook shared secret
func (s *TenantService) RotateWebhookSecret(ctx context.Context, id uuid.UUID, req RotateWebhookSecretRequest) (*TenantResponse, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.RotateWebhookSecret(req.WebhookSecret); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant webhook secret rotated",
		zap.String("tenant_id", t.ID.String()),
	)
	return NewTenantResponse(t), nil
}

// Deactivate soft-deletes a tenant. Ingested rows are retained, webhook
// deliveries and scheduled syncs stop.
func (s *TenantService) Deactivate(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tenant deactivated",
		zap.String("tenant_id", t.ID.String()),
		zap.String("shop_domain", t.ShopDomain),
	)
	return NewTenantResponse(t), nil
}
