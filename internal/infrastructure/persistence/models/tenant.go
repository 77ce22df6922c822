package models

import (
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
)

// TenantModel is the persistence model for tenants
type TenantModel struct {
	BaseModel
	Name          string `gorm:"size:200;not null"`
	ShopDomain    string `gorm:"size:255;not null;uniqueIndex"`
	AccessToken   string `gorm:"size:512;not null"`
	WebhookSecret string `gorm:"size:512;not null"`
	Status        string `gorm:"size:20;not null;index"`
	SyncEnabled   bool   `gorm:"not null;default:true"`
	SyncDisabled  string `gorm:"size:255;not null;default:''"`
	Version       int    `gorm:"not null;default:1"`
}

// TableName returns the table name for TenantModel
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts TenantModel to domain Tenant
func (m *TenantModel) ToDomain() *tenant.Tenant {
	return &tenant.Tenant{
		BaseEntity:    m.BaseModel.ToDomain(),
		Name:          m.Name,
		ShopDomain:    m.ShopDomain,
		AccessToken:   m.AccessToken,
		WebhookSecret: m.WebhookSecret,
		Status:        tenant.Status(m.Status),
		SyncEnabled:   m.SyncEnabled,
		SyncDisabled:  m.SyncDisabled,
		Version:       m.Version,
	}
}

// FromDomain populates TenantModel from domain Tenant
func (m *TenantModel) FromDomain(t *tenant.Tenant) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.Name = t.Name
	m.ShopDomain = t.ShopDomain
	m.AccessToken = t.AccessToken
	m.WebhookSecret = t.WebhookSecret
	m.Status = string(t.Status)
	m.SyncEnabled = t.SyncEnabled
	m.SyncDisabled = t.SyncDisabled
	m.Version = t.Version
}
