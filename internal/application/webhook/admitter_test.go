package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/reconcile"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/shared"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/cache"
)

// fakeTenantRepo resolves a single tenant by shop domain
type fakeTenantRepo struct {
	tenant *tenant.Tenant
}

func (f *fakeTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	if f.tenant != nil && f.tenant.ID == id {
		return f.tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) FindByShopDomain(_ context.Context, shopDomain string) (*tenant.Tenant, error) {
	if f.tenant != nil && f.tenant.ShopDomain == shopDomain {
		return f.tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeTenantRepo) FindSyncable(_ context.Context) ([]tenant.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantRepo) Save(_ context.Context, t *tenant.Tenant) error {
	f.tenant = t
	return nil
}

// fakeCanonicalStore returns a scripted outcome for every merge
type fakeCanonicalStore struct {
	outcome canonical.MergeOutcome
	err     error
	merges  int
}

func (f *fakeCanonicalStore) MergeCustomer(_ context.Context, _ *canonical.Customer) (canonical.MergeOutcome, error) {
	f.merges++
	return f.outcome, f.err
}

func (f *fakeCanonicalStore) MergeOrder(_ context.Context, _ *canonical.Order) (canonical.MergeOutcome, error) {
	f.merges++
	return f.outcome, f.err
}

func (f *fakeCanonicalStore) MergeProduct(_ context.Context, _ *canonical.Product) (canonical.MergeOutcome, error) {
	f.merges++
	return f.outcome, f.err
}

func (f *fakeCanonicalStore) MergeCheckoutEvent(_ context.Context, _ *canonical.CheckoutEvent) (canonical.MergeOutcome, error) {
	f.merges++
	return f.outcome, f.err
}

const testSecret = "whsec_test_shared_secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestTenant(t *testing.T) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant("Acme", "acme.myshopify.com", "shpat_test_token", testSecret)
	require.NoError(t, err)
	return tn
}

type admitterFixture struct {
	admitter   *Admitter
	tenant     *tenant.Tenant
	store      *fakeCanonicalStore
	deliveries *cache.InMemoryDeliveryStore
}

func newAdmitterFixture(t *testing.T, outcome canonical.MergeOutcome) *admitterFixture {
	t.Helper()
	tn := newTestTenant(t)
	store := &fakeCanonicalStore{outcome: outcome}
	deliveries := cache.NewInMemoryDeliveryStore()
	t.Cleanup(func() { _ = deliveries.Close() })

	admitter := NewAdmitter(
		&fakeTenantRepo{tenant: tn},
		deliveries,
		reconcile.NewReconciler(store, zap.NewNop()),
		48*time.Hour,
		zap.NewNop(),
	)
	return &admitterFixture{admitter: admitter, tenant: tn, store: store, deliveries: deliveries}
}

func validDelivery(body []byte) Delivery {
	return Delivery{
		ShopDomain: "acme.myshopify.com",
		Topic:      webhook.TopicCustomersUpdate,
		DeliveryID: "d-1001",
		Signature:  sign(testSecret, body),
		Body:       body,
	}
}

func TestAdmitter_Admit(t *testing.T) {
	body := []byte(`{"id": 7001, "updated_at": "2026-08-01T10:00:00Z", "email": "jo@example.com"}`)

	t.Run("valid delivery is applied", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		result, err := fx.admitter.Admit(context.Background(), validDelivery(body))

		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, webhook.DeliveryOutcomeApplied, result.Outcome)
		assert.Equal(t, 1, result.Revision)
		assert.Equal(t, 1, fx.store.merges)

		outcome, ok := fx.deliveries.Outcome(fx.tenant.ID, "d-1001")
		require.True(t, ok)
		assert.Equal(t, webhook.DeliveryOutcomeApplied, outcome)
	})

	t.Run("stale delivery succeeds without applying", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: false, Revision: 4})

		result, err := fx.admitter.Admit(context.Background(), validDelivery(body))

		require.NoError(t, err)
		assert.Equal(t, webhook.DeliveryOutcomeStale, result.Outcome)
		assert.Equal(t, 4, result.Revision)
	})

	t.Run("duplicate delivery is a no-op success", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		_, err := fx.admitter.Admit(context.Background(), validDelivery(body))
		require.NoError(t, err)

		result, err := fx.admitter.Admit(context.Background(), validDelivery(body))
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		assert.Equal(t, 1, fx.store.merges, "duplicate must not be reprocessed")
	})

	t.Run("same delivery id from another tenant is not a duplicate", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})
		_, err := fx.admitter.Admit(context.Background(), validDelivery(body))
		require.NoError(t, err)

		other := newTestTenant(t)
		otherAdmitter := NewAdmitter(
			&fakeTenantRepo{tenant: other},
			fx.deliveries,
			reconcile.NewReconciler(fx.store, zap.NewNop()),
			48*time.Hour,
			zap.NewNop(),
		)
		result, err := otherAdmitter.Admit(context.Background(), validDelivery(body))

		require.NoError(t, err)
		assert.False(t, result.Duplicate)
	})

	t.Run("missing delivery id skips dedup but reconciles", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.DeliveryID = ""
		result, err := fx.admitter.Admit(context.Background(), d)

		require.NoError(t, err)
		assert.Equal(t, webhook.DeliveryOutcomeApplied, result.Outcome)

		result, err = fx.admitter.Admit(context.Background(), d)
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, 2, fx.store.merges)
	})

	t.Run("malformed body records failed outcome", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		bad := []byte(`{"email": "jo@example.com"}`)
		d := validDelivery(bad)
		result, err := fx.admitter.Admit(context.Background(), d)

		require.NoError(t, err)
		assert.Equal(t, webhook.DeliveryOutcomeFailed, result.Outcome)
		assert.Zero(t, fx.store.merges)

		outcome, ok := fx.deliveries.Outcome(fx.tenant.ID, "d-1001")
		require.True(t, ok)
		assert.Equal(t, webhook.DeliveryOutcomeFailed, outcome)
	})

	t.Run("store failure releases the dedup slot for redelivery", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})
		fx.store.err = errors.New("connection reset")

		_, err := fx.admitter.Admit(context.Background(), validDelivery(body))
		assert.Error(t, err)
		_, registered := fx.deliveries.Outcome(fx.tenant.ID, "d-1001")
		assert.False(t, registered, "failed delivery must not occupy the dedup slot")

		// the sender redelivers after the error response; the retry must
		// reconcile instead of being skipped as a duplicate
		fx.store.err = nil
		result, err := fx.admitter.Admit(context.Background(), validDelivery(body))

		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, webhook.DeliveryOutcomeApplied, result.Outcome)
		assert.Equal(t, 2, fx.store.merges)
	})
}

func TestAdmitter_Rejections(t *testing.T) {
	body := []byte(`{"id": 7001, "updated_at": "2026-08-01T10:00:00Z"}`)

	t.Run("tampered body", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.Body = append([]byte(nil), body...)
		d.Body[0] = ' '
		_, err := fx.admitter.Admit(context.Background(), d)

		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
		assert.Zero(t, fx.store.merges)
		_, ok := fx.deliveries.Outcome(fx.tenant.ID, "d-1001")
		assert.False(t, ok, "rejected deliveries must not be registered")
	})

	t.Run("missing signature", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.Signature = ""
		_, err := fx.admitter.Admit(context.Background(), d)

		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.Signature = sign("other-secret", body)
		_, err := fx.admitter.Admit(context.Background(), d)

		assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("unknown shop domain", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.ShopDomain = "ghost.myshopify.com"
		_, err := fx.admitter.Admit(context.Background(), d)

		assert.ErrorIs(t, err, webhook.ErrUnknownTenant)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})
		require.NoError(t, fx.tenant.Deactivate())

		_, err := fx.admitter.Admit(context.Background(), validDelivery(body))

		assert.ErrorIs(t, err, webhook.ErrUnknownTenant)
	})

	t.Run("unsupported topic", func(t *testing.T) {
		fx := newAdmitterFixture(t, canonical.MergeOutcome{Applied: true, Revision: 1})

		d := validDelivery(body)
		d.Topic = webhook.Topic("refunds/create")
		_, err := fx.admitter.Admit(context.Background(), d)

		assert.ErrorIs(t, err, webhook.ErrUnsupportedTopic)
	})
}
