package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/persistence/models"
)

// GormSyncTracker implements syncstate.Tracker using GORM
type GormSyncTracker struct {
	db *gorm.DB
}

// NewGormSyncTracker creates a new GormSyncTracker
func NewGormSyncTracker(db *gorm.DB) *GormSyncTracker {
	return &GormSyncTracker{db: db}
}

// GetCursor returns the cursor for a tenant+resource, or nil if the pair
// has never been synced
func (t *GormSyncTracker) GetCursor(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType) (*syncstate.Cursor, error) {
	var model models.SyncCursorModel
	err := t.db.WithContext(ctx).
		Where("tenant_id = ? AND resource = ?", tenantID, resource.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Commit folds one finished run into the cursor, creating it on first sync.
// The read-modify-write runs in a transaction so concurrent commits for
// different resources of the same tenant cannot clobber each other.
func (t *GormSyncTracker) Commit(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType, watermark time.Time, outcome syncstate.Outcome, applied int) (*syncstate.Cursor, error) {
	var committed *syncstate.Cursor
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.SyncCursorModel
		err := tx.Where("tenant_id = ? AND resource = ?", tenantID, resource.String()).
			First(&model).Error

		var cursor *syncstate.Cursor
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cursor = syncstate.NewCursor(tenantID, resource)
		case err != nil:
			return err
		default:
			cursor = model.ToDomain()
		}

		cursor.ApplyRun(watermark, outcome, applied)

		var updated models.SyncCursorModel
		updated.FromDomain(cursor)
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}

		committed = cursor
		return nil
	})
	return committed, err
}

// ListCursors returns all cursors for a tenant
func (t *GormSyncTracker) ListCursors(ctx context.Context, tenantID uuid.UUID) ([]syncstate.Cursor, error) {
	var cursorModels []models.SyncCursorModel
	if err := t.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("resource ASC").
		Find(&cursorModels).Error; err != nil {
		return nil, err
	}

	cursors := make([]syncstate.Cursor, len(cursorModels))
	for i, model := range cursorModels {
		cursors[i] = *model.ToDomain()
	}
	return cursors, nil
}

// Ensure GormSyncTracker implements the Tracker interface
var _ syncstate.Tracker = (*GormSyncTracker)(nil)
