package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/persistence/models"
)

// newTestDB opens an in-memory SQLite database with the full schema so
// merge semantics can be exercised against real transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.TenantModel{},
		&models.CustomerModel{},
		&models.OrderModel{},
		&models.OrderLineItemModel{},
		&models.ProductModel{},
		&models.CheckoutEventModel{},
		&models.SyncCursorModel{},
	))
	return db
}

func newCustomer(tenantID uuid.UUID, externalID string, updatedAt time.Time) *canonical.Customer {
	return &canonical.Customer{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      externalID,
			SourceUpdatedAt: updatedAt,
		},
		Email:      "jordan@example.com",
		FirstName:  "Jordan",
		LastName:   "Lee",
		TotalSpent: decimal.NewFromInt(100),
	}
}

func newOrder(tenantID uuid.UUID, externalID string, updatedAt time.Time, items ...canonical.OrderLineItem) *canonical.Order {
	return &canonical.Order{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      externalID,
			SourceUpdatedAt: updatedAt,
		},
		OrderNumber: "1001",
		Currency:    "USD",
		TotalPrice:  decimal.NewFromFloat(99.50),
		LineItems:   items,
	}
}

func TestGormCanonicalStore_MergeCustomer(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first merge inserts at revision 1", func(t *testing.T) {
		store := NewGormCanonicalStore(newTestDB(t))

		outcome, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base))
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, 1, outcome.Revision)
	})

	t.Run("newer watermark applies and bumps revision", func(t *testing.T) {
		store := NewGormCanonicalStore(newTestDB(t))

		_, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base))
		require.NoError(t, err)

		updated := newCustomer(tenantID, "501", base.Add(time.Hour))
		updated.Email = "jordan.lee@example.com"
		outcome, err := store.MergeCustomer(ctx, updated)
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, 2, outcome.Revision)
	})

	t.Run("equal watermark is a stale no-op", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		_, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base))
		require.NoError(t, err)

		stale := newCustomer(tenantID, "501", base)
		stale.Email = "should.not.win@example.com"
		outcome, err := store.MergeCustomer(ctx, stale)
		require.NoError(t, err)
		assert.False(t, outcome.Applied)
		assert.Equal(t, 1, outcome.Revision)

		var model models.CustomerModel
		require.NoError(t, db.Where("tenant_id = ? AND external_id = ?", tenantID, "501").First(&model).Error)
		assert.Equal(t, "jordan@example.com", model.Email)
		assert.Equal(t, 1, model.Revision)
	})

	t.Run("older watermark is a stale no-op", func(t *testing.T) {
		store := NewGormCanonicalStore(newTestDB(t))

		_, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base))
		require.NoError(t, err)

		outcome, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base.Add(-time.Hour)))
		require.NoError(t, err)
		assert.False(t, outcome.Applied)
	})

	t.Run("same external id in different tenants stays separate", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)
		otherTenant := uuid.New()

		_, err := store.MergeCustomer(ctx, newCustomer(tenantID, "501", base))
		require.NoError(t, err)
		outcome, err := store.MergeCustomer(ctx, newCustomer(otherTenant, "501", base))
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, 1, outcome.Revision)

		var count int64
		require.NoError(t, db.Model(&models.CustomerModel{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormCanonicalStore_MergeOrder(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	lineItem := func(externalID, title string, qty int) canonical.OrderLineItem {
		return canonical.OrderLineItem{
			ExternalID:        externalID,
			ProductExternalID: "p-" + externalID,
			Title:             title,
			Quantity:          qty,
			Price:             decimal.NewFromInt(10),
		}
	}

	t.Run("insert writes order and line items together", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		order := newOrder(tenantID, "9001", base, lineItem("li-1", "Widget", 2), lineItem("li-2", "Gadget", 1))
		outcome, err := store.MergeOrder(ctx, order)
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, 1, outcome.Revision)

		var items []models.OrderLineItemModel
		require.NoError(t, db.Where("tenant_id = ?", tenantID).Order("position ASC").Find(&items).Error)
		require.Len(t, items, 2)
		assert.Equal(t, "li-1", items[0].ExternalID)
		assert.Equal(t, 1, items[0].Position)
		assert.Equal(t, "li-2", items[1].ExternalID)
		assert.Equal(t, 2, items[1].Position)
	})

	t.Run("applied merge replaces the line item set", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		_, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base,
			lineItem("li-1", "Widget", 2), lineItem("li-2", "Gadget", 1)))
		require.NoError(t, err)

		outcome, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base.Add(time.Hour),
			lineItem("li-3", "Doodad", 5)))
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, 2, outcome.Revision)

		var items []models.OrderLineItemModel
		require.NoError(t, db.Where("tenant_id = ?", tenantID).Find(&items).Error)
		require.Len(t, items, 1)
		assert.Equal(t, "li-3", items[0].ExternalID)
	})

	t.Run("stale merge leaves line items untouched", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		_, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base, lineItem("li-1", "Widget", 2)))
		require.NoError(t, err)

		outcome, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base, lineItem("li-9", "Imposter", 1)))
		require.NoError(t, err)
		assert.False(t, outcome.Applied)

		var items []models.OrderLineItemModel
		require.NoError(t, db.Where("tenant_id = ?", tenantID).Find(&items).Error)
		require.Len(t, items, 1)
		assert.Equal(t, "li-1", items[0].ExternalID)
	})

	t.Run("failed line item write rolls back the order row", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		_, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base, lineItem("li-1", "Widget", 2)))
		require.NoError(t, err)

		// sabotage the line item table so the second half of the merge
		// transaction cannot complete
		require.NoError(t, db.Migrator().DropTable(&models.OrderLineItemModel{}))

		newer := newOrder(tenantID, "9001", base.Add(time.Hour), lineItem("li-2", "Gadget", 1))
		newer.Currency = "EUR"
		_, err = store.MergeOrder(ctx, newer)
		require.Error(t, err)

		var model models.OrderModel
		require.NoError(t, db.Where("tenant_id = ? AND external_id = ?", tenantID, "9001").First(&model).Error)
		assert.Equal(t, 1, model.Revision)
		assert.Equal(t, "USD", model.Currency)
		assert.True(t, model.SourceUpdatedAt.Equal(base))
	})

	t.Run("applied merge with no line items clears the set", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormCanonicalStore(db)

		_, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base, lineItem("li-1", "Widget", 2)))
		require.NoError(t, err)

		outcome, err := store.MergeOrder(ctx, newOrder(tenantID, "9001", base.Add(time.Hour)))
		require.NoError(t, err)
		assert.True(t, outcome.Applied)

		var count int64
		require.NoError(t, db.Model(&models.OrderLineItemModel{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestGormCanonicalStore_MergeProduct(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewGormCanonicalStore(newTestDB(t))

	product := &canonical.Product{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      "777",
			SourceUpdatedAt: base,
		},
		Title:  "Blue Mug",
		Handle: "blue-mug",
		Status: "active",
	}

	outcome, err := store.MergeProduct(ctx, product)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 1, outcome.Revision)

	newer := *product
	newer.SourceUpdatedAt = base.Add(time.Minute)
	newer.Title = "Blue Mug v2"
	outcome, err = store.MergeProduct(ctx, &newer)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 2, outcome.Revision)

	outcome, err = store.MergeProduct(ctx, product)
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Equal(t, 2, outcome.Revision)
}

func TestGormCanonicalStore_MergeCheckoutEvent(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewGormCanonicalStore(newTestDB(t))

	event := &canonical.CheckoutEvent{
		Record: canonical.Record{
			TenantID:        tenantID,
			ExternalID:      "tok_abc123",
			SourceUpdatedAt: base,
		},
		Email:         "cart@example.com",
		Currency:      "USD",
		TotalPrice:    decimal.NewFromInt(45),
		LineItemCount: 3,
	}

	outcome, err := store.MergeCheckoutEvent(ctx, event)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 1, outcome.Revision)

	outcome, err = store.MergeCheckoutEvent(ctx, event)
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
}
