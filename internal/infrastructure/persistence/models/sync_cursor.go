package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
)

// SyncCursorModel is the persistence model for sync cursors. The composite
// primary key makes one row per (tenant, resource) stream.
type SyncCursorModel struct {
	TenantID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Resource            string    `gorm:"size:20;primaryKey"`
	Watermark           time.Time
	LastRunAt           time.Time
	LastOutcome         string `gorm:"size:20"`
	ConsecutiveFailures int    `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName returns the table name for SyncCursorModel
func (SyncCursorModel) TableName() string {
	return "sync_cursors"
}

// ToDomain converts SyncCursorModel to domain Cursor
func (m *SyncCursorModel) ToDomain() *syncstate.Cursor {
	return &syncstate.Cursor{
		TenantID:            m.TenantID,
		Resource:            integration.ResourceType(m.Resource),
		Watermark:           m.Watermark,
		LastRunAt:           m.LastRunAt,
		LastOutcome:         syncstate.Outcome(m.LastOutcome),
		ConsecutiveFailures: m.ConsecutiveFailures,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates SyncCursorModel from domain Cursor
func (m *SyncCursorModel) FromDomain(c *syncstate.Cursor) {
	m.TenantID = c.TenantID
	m.Resource = c.Resource.String()
	m.Watermark = c.Watermark
	m.LastRunAt = c.LastRunAt
	m.LastOutcome = c.LastOutcome.String()
	m.ConsecutiveFailures = c.ConsecutiveFailures
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}
