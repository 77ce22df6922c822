package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// fakeStore records the last merged entity and returns a scripted outcome
type fakeStore struct {
	outcome canonical.MergeOutcome
	err     error

	customer *canonical.Customer
	order    *canonical.Order
	product  *canonical.Product
	checkout *canonical.CheckoutEvent
	calls    int
}

func (f *fakeStore) MergeCustomer(_ context.Context, c *canonical.Customer) (canonical.MergeOutcome, error) {
	f.calls++
	f.customer = c
	return f.outcome, f.err
}

func (f *fakeStore) MergeOrder(_ context.Context, o *canonical.Order) (canonical.MergeOutcome, error) {
	f.calls++
	f.order = o
	return f.outcome, f.err
}

func (f *fakeStore) MergeProduct(_ context.Context, p *canonical.Product) (canonical.MergeOutcome, error) {
	f.calls++
	f.product = p
	return f.outcome, f.err
}

func (f *fakeStore) MergeCheckoutEvent(_ context.Context, e *canonical.CheckoutEvent) (canonical.MergeOutcome, error) {
	f.calls++
	f.checkout = e
	return f.outcome, f.err
}

func rawRecord(payload string) integration.RawRecord {
	return integration.RawRecord{Payload: []byte(payload)}
}

func TestReconciler_MergeCustomer(t *testing.T) {
	tenantID := uuid.New()

	t.Run("applied customer maps all fields", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{
			"id": 7001,
			"updated_at": "2026-08-01T10:00:00Z",
			"email": "jo@example.com",
			"first_name": "Jo",
			"last_name": "Smith",
			"phone": "+15550001111",
			"tags": "vip, wholesale",
			"orders_count": 4,
			"total_spent": "199.90"
		}`
		result, err := r.Merge(context.Background(), tenantID, integration.ResourceCustomers, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, StatusApplied, result.Status)
		assert.Equal(t, 1, result.Revision)

		require.NotNil(t, store.customer)
		assert.Equal(t, tenantID, store.customer.TenantID)
		assert.Equal(t, "7001", store.customer.ExternalID)
		assert.Equal(t, "jo@example.com", store.customer.Email)
		assert.Equal(t, 4, store.customer.OrdersCount)
		assert.Equal(t, "199.90", store.customer.TotalSpent.StringFixed(2))
		assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), store.customer.SourceUpdatedAt)
	})

	t.Run("stale outcome surfaces as stale", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: false, Revision: 3}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{"id": 7001, "updated_at": "2026-08-01T10:00:00Z"}`
		result, err := r.Merge(context.Background(), tenantID, integration.ResourceCustomers, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, StatusStale, result.Status)
		assert.Equal(t, 3, result.Revision)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		store := &fakeStore{err: storeErr}
		r := NewReconciler(store, zap.NewNop())

		payload := `{"id": 7001, "updated_at": "2026-08-01T10:00:00Z"}`
		_, err := r.Merge(context.Background(), tenantID, integration.ResourceCustomers, rawRecord(payload))

		assert.ErrorIs(t, err, storeErr)
	})
}

func TestReconciler_Malformed(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		resource integration.ResourceType
		payload  string
	}{
		{"invalid json", integration.ResourceCustomers, `{"id": 7001,`},
		{"missing id", integration.ResourceCustomers, `{"updated_at": "2026-08-01T10:00:00Z"}`},
		{"missing updated_at", integration.ResourceProducts, `{"id": 9001}`},
		{"line item without id", integration.ResourceOrders, `{
			"id": 8001, "updated_at": "2026-08-01T10:00:00Z",
			"line_items": [{"title": "Widget", "quantity": 1}]
		}`},
		{"checkout without token or id", integration.ResourceCheckouts, `{"updated_at": "2026-08-01T10:00:00Z"}`},
		{"unparseable price", integration.ResourceOrders, `{
			"id": 8002, "updated_at": "2026-08-01T10:00:00Z", "total_price": "not-a-number"
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
			r := NewReconciler(store, zap.NewNop())

			result, err := r.Merge(context.Background(), tenantID, tt.resource, rawRecord(tt.payload))

			require.NoError(t, err)
			assert.Equal(t, StatusMalformed, result.Status)
			assert.Zero(t, result.Revision)
			assert.Zero(t, store.calls, "malformed records must not reach the store")
		})
	}
}

func TestReconciler_MergeOrder(t *testing.T) {
	tenantID := uuid.New()

	t.Run("line items keep storefront order", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{
			"id": 8001,
			"updated_at": "2026-08-02T09:30:00Z",
			"order_number": 1042,
			"customer": {"id": 7001},
			"email": "jo@example.com",
			"financial_status": "paid",
			"currency": "USD",
			"subtotal_price": "50.00",
			"total_tax": "4.50",
			"total_price": "54.50",
			"line_items": [
				{"id": 91, "product_id": 9001, "variant_id": 9101, "title": "Widget", "sku": "W-1", "quantity": 2, "price": "10.00"},
				{"id": 92, "product_id": 9002, "variant_id": 9102, "title": "Gadget", "sku": "G-1", "quantity": 1, "price": "30.00"}
			]
		}`
		result, err := r.Merge(context.Background(), tenantID, integration.ResourceOrders, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, StatusApplied, result.Status)

		require.NotNil(t, store.order)
		assert.Equal(t, "8001", store.order.ExternalID)
		assert.Equal(t, "1042", store.order.OrderNumber)
		assert.Equal(t, "7001", store.order.CustomerExternalID)
		require.Len(t, store.order.LineItems, 2)
		assert.Equal(t, "91", store.order.LineItems[0].ExternalID)
		assert.Equal(t, 1, store.order.LineItems[0].Position)
		assert.Equal(t, "92", store.order.LineItems[1].ExternalID)
		assert.Equal(t, 2, store.order.LineItems[1].Position)
		assert.Equal(t, "54.50", store.order.TotalPrice.StringFixed(2))
	})

	t.Run("order without customer or line items is valid", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{"id": 8003, "updated_at": "2026-08-02T09:30:00Z"}`
		result, err := r.Merge(context.Background(), tenantID, integration.ResourceOrders, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, StatusApplied, result.Status)
		assert.Empty(t, store.order.CustomerExternalID)
		assert.Empty(t, store.order.LineItems)
	})
}

func TestReconciler_MergeCheckoutEvent(t *testing.T) {
	tenantID := uuid.New()

	t.Run("token preferred over id", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{
			"id": 5001,
			"token": "chk_abc123",
			"updated_at": "2026-08-03T12:00:00Z",
			"currency": "EUR",
			"total_price": "80.00",
			"abandoned_checkout_url": "https://acme.myshopify.com/recover/chk_abc123",
			"line_items": [{}, {}, {}]
		}`
		result, err := r.Merge(context.Background(), tenantID, integration.ResourceCheckouts, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, StatusApplied, result.Status)
		assert.Equal(t, "chk_abc123", store.checkout.ExternalID)
		assert.Equal(t, 3, store.checkout.LineItemCount)
	})

	t.Run("falls back to numeric id", func(t *testing.T) {
		store := &fakeStore{outcome: canonical.MergeOutcome{Applied: true, Revision: 1}}
		r := NewReconciler(store, zap.NewNop())

		payload := `{"id": 5002, "updated_at": "2026-08-03T12:00:00Z"}`
		_, err := r.Merge(context.Background(), tenantID, integration.ResourceCheckouts, rawRecord(payload))

		require.NoError(t, err)
		assert.Equal(t, "5002", store.checkout.ExternalID)
	})
}

func TestReconciler_UnknownResource(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store, zap.NewNop())

	_, err := r.Merge(context.Background(), uuid.New(), integration.ResourceType("inventory"), rawRecord(`{}`))

	assert.Error(t, err)
	assert.Zero(t, store.calls)
}
