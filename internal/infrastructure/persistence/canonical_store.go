package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/persistence/models"
)

// GormCanonicalStore implements canonical.Store using GORM. Each merge runs
// in its own transaction: the watermark comparison and the row write are
// atomic, so two concurrent merges of the same entity serialize and the
// stale one becomes a no-op.
type GormCanonicalStore struct {
	db *gorm.DB
}

// NewGormCanonicalStore creates a new GormCanonicalStore
func NewGormCanonicalStore(db *gorm.DB) *GormCanonicalStore {
	return &GormCanonicalStore{db: db}
}

// MergeCustomer inserts or updates a canonical customer
func (s *GormCanonicalStore) MergeCustomer(ctx context.Context, c *canonical.Customer) (canonical.MergeOutcome, error) {
	var outcome canonical.MergeOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CustomerModel
		err := tx.Where("tenant_id = ? AND external_id = ?", c.TenantID, c.ExternalID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.CustomerModel
			model.FromDomain(c)
			prepareInsert(&model.BaseModel)
			model.Revision = 1
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			outcome = canonical.MergeOutcome{Applied: true, Revision: 1}
			return nil

		case err != nil:
			return err
		}

		if !c.SourceUpdatedAt.After(existing.SourceUpdatedAt) {
			outcome = canonical.MergeOutcome{Applied: false, Revision: existing.Revision}
			return nil
		}

		var model models.CustomerModel
		model.FromDomain(c)
		carryOverForUpdate(&model.BaseModel, &existing.BaseModel)
		model.Revision = existing.Revision + 1
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		outcome = canonical.MergeOutcome{Applied: true, Revision: model.Revision}
		return nil
	})
	return outcome, err
}

// MergeOrder inserts or updates a canonical order together with its line
// items. An applied merge replaces the line item set wholesale; a stale
// merge leaves both the order row and its line items untouched.
func (s *GormCanonicalStore) MergeOrder(ctx context.Context, o *canonical.Order) (canonical.MergeOutcome, error) {
	var outcome canonical.MergeOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.OrderModel
		err := tx.Where("tenant_id = ? AND external_id = ?", o.TenantID, o.ExternalID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.OrderModel
			model.FromDomain(o)
			prepareInsert(&model.BaseModel)
			model.Revision = 1
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			if err := s.replaceLineItems(tx, o, model.ID); err != nil {
				return err
			}
			outcome = canonical.MergeOutcome{Applied: true, Revision: 1}
			return nil

		case err != nil:
			return err
		}

		if !o.SourceUpdatedAt.After(existing.SourceUpdatedAt) {
			outcome = canonical.MergeOutcome{Applied: false, Revision: existing.Revision}
			return nil
		}

		var model models.OrderModel
		model.FromDomain(o)
		carryOverForUpdate(&model.BaseModel, &existing.BaseModel)
		model.Revision = existing.Revision + 1
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		if err := s.replaceLineItems(tx, o, model.ID); err != nil {
			return err
		}
		outcome = canonical.MergeOutcome{Applied: true, Revision: model.Revision}
		return nil
	})
	return outcome, err
}

// replaceLineItems deletes the order's line items and writes the incoming set
func (s *GormCanonicalStore) replaceLineItems(tx *gorm.DB, o *canonical.Order, orderID uuid.UUID) error {
	if err := tx.Where("order_id = ?", orderID).
		Delete(&models.OrderLineItemModel{}).Error; err != nil {
		return err
	}

	if len(o.LineItems) == 0 {
		return nil
	}

	itemModels := make([]models.OrderLineItemModel, len(o.LineItems))
	for i := range o.LineItems {
		item := o.LineItems[i]
		item.OrderID = orderID
		item.TenantID = o.TenantID
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.Position == 0 {
			item.Position = i + 1
		}
		itemModels[i].FromDomain(&item)
	}
	return tx.Create(&itemModels).Error
}

// MergeProduct inserts or updates a canonical product
func (s *GormCanonicalStore) MergeProduct(ctx context.Context, p *canonical.Product) (canonical.MergeOutcome, error) {
	var outcome canonical.MergeOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ProductModel
		err := tx.Where("tenant_id = ? AND external_id = ?", p.TenantID, p.ExternalID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.ProductModel
			model.FromDomain(p)
			prepareInsert(&model.BaseModel)
			model.Revision = 1
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			outcome = canonical.MergeOutcome{Applied: true, Revision: 1}
			return nil

		case err != nil:
			return err
		}

		if !p.SourceUpdatedAt.After(existing.SourceUpdatedAt) {
			outcome = canonical.MergeOutcome{Applied: false, Revision: existing.Revision}
			return nil
		}

		var model models.ProductModel
		model.FromDomain(p)
		carryOverForUpdate(&model.BaseModel, &existing.BaseModel)
		model.Revision = existing.Revision + 1
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		outcome = canonical.MergeOutcome{Applied: true, Revision: model.Revision}
		return nil
	})
	return outcome, err
}

// MergeCheckoutEvent inserts or updates a canonical checkout event
func (s *GormCanonicalStore) MergeCheckoutEvent(ctx context.Context, e *canonical.CheckoutEvent) (canonical.MergeOutcome, error) {
	var outcome canonical.MergeOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CheckoutEventModel
		err := tx.Where("tenant_id = ? AND external_id = ?", e.TenantID, e.ExternalID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.CheckoutEventModel
			model.FromDomain(e)
			prepareInsert(&model.BaseModel)
			model.Revision = 1
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			outcome = canonical.MergeOutcome{Applied: true, Revision: 1}
			return nil

		case err != nil:
			return err
		}

		if !e.SourceUpdatedAt.After(existing.SourceUpdatedAt) {
			outcome = canonical.MergeOutcome{Applied: false, Revision: existing.Revision}
			return nil
		}

		var model models.CheckoutEventModel
		model.FromDomain(e)
		carryOverForUpdate(&model.BaseModel, &existing.BaseModel)
		model.Revision = existing.Revision + 1
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		outcome = canonical.MergeOutcome{Applied: true, Revision: model.Revision}
		return nil
	})
	return outcome, err
}

// prepareInsert stamps identity and timestamps for a fresh row
func prepareInsert(m *models.BaseModel) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
}

// carryOverForUpdate keeps the stored identity and creation time when a
// merge overwrites an existing row
func carryOverForUpdate(m *models.BaseModel, existing *models.BaseModel) {
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now()
}

// Ensure GormCanonicalStore implements the Store interface
var _ canonical.Store = (*GormCanonicalStore)(nil)
