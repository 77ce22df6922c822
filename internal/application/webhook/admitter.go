package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/reconcile"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/shared"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/telemetry"
)

// Delivery is one inbound webhook delivery as received on the wire
type Delivery struct {
	// ShopDomain is the sending shop, from the X-Shopify-Shop-Domain header
	ShopDomain string
	// Topic is the event topic, from the X-Shopify-Topic header
	Topic webhook.Topic
	// DeliveryID is the sender-assigned delivery identifier, from the
	// X-Shopify-Webhook-Id header
	DeliveryID string
	// Signature is the base64 HMAC-SHA256 of the body, from the
	// X-Shopify-Hmac-Sha256 header
	Signature string
	// Body is the raw request body the signature was computed over
	Body []byte
}

// Result reports how an admitted delivery was processed
type Result struct {
	// Duplicate is true when the delivery was already admitted; nothing
	// was reprocessed
	Duplicate bool
	Outcome   webhook.DeliveryOutcome
	Revision  int
}

// Admitter verifies, deduplicates and reconciles inbound webhook deliveries.
// Admission order is fixed: the tenant is resolved first, its shared secret
// verifies the signature, and only authenticated deliveries touch the dedup
// store or the canonical store.
type Admitter struct {
	tenants    tenant.Repository
	deliveries webhook.DeliveryStore
	reconciler *reconcile.Reconciler
	retention  time.Duration
	logger     *zap.Logger
}

// NewAdmitter creates a webhook admitter. retention bounds how long a
// delivery ID is remembered for deduplication.
func NewAdmitter(
	tenants tenant.Repository,
	deliveries webhook.DeliveryStore,
	reconciler *reconcile.Reconciler,
	retention time.Duration,
	log *zap.Logger,
) *Admitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admitter{
		tenants:    tenants,
		deliveries: deliveries,
		reconciler: reconciler,
		retention:  retention,
		logger:     log,
	}
}

// Admit processes one webhook delivery end to end. It returns
// webhook.ErrUnknownTenant, webhook.ErrInvalidSignature or
// webhook.ErrUnsupportedTopic for rejections the transport layer maps to
// status codes; duplicates are reported as a successful no-op.
func (a *Admitter) Admit(ctx context.Context, d Delivery) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "webhook", "admit",
		attribute.String(telemetry.SpanAttrShopDomain, d.ShopDomain),
		attribute.String(telemetry.SpanAttrTopic, d.Topic.String()),
		attribute.String(telemetry.SpanAttrDeliveryID, d.DeliveryID),
	)
	defer span.End()

	if !d.Topic.IsValid() {
		return Result{}, fmt.Errorf("%w: %s", webhook.ErrUnsupportedTopic, d.Topic)
	}
	resource, err := d.Topic.Resource()
	if err != nil {
		return Result{}, err
	}

	t, err := a.resolveTenant(ctx, d.ShopDomain)
	if err != nil {
		return Result{}, err
	}

	if !verifySignature(t.WebhookSecret, d.Body, d.Signature) {
		a.logger.Warn("webhook signature rejected",
			zap.String("tenant_id", t.ID.String()),
			zap.String("shop_domain", t.ShopDomain),
			zap.String("topic", d.Topic.String()),
			zap.String("delivery_id", d.DeliveryID),
		)
		return Result{}, webhook.ErrInvalidSignature
	}

	// Deliveries without an ID cannot be deduplicated; reconciliation
	// idempotence still makes reprocessing them safe.
	if d.DeliveryID != "" {
		fresh, err := a.deliveries.Register(ctx, t.ID, d.DeliveryID, a.retention)
		if err != nil {
			telemetry.RecordError(span, err)
			return Result{}, fmt.Errorf("webhook: registering delivery: %w", err)
		}
		if !fresh {
			a.logger.Debug("duplicate delivery skipped",
				zap.String("tenant_id", t.ID.String()),
				zap.String("delivery_id", d.DeliveryID),
			)
			span.SetAttributes(attribute.String(telemetry.SpanAttrOutcome, "DUPLICATE"))
			return Result{Duplicate: true}, nil
		}
	}

	mergeResult, err := a.reconciler.Merge(ctx, t.ID, resource, integration.RawRecord{Payload: d.Body})
	if err != nil {
		// The sender will redeliver after the error response, so release
		// the dedup slot or the retry would be acknowledged as a duplicate
		// without ever reaching the store.
		a.unregister(ctx, t.ID, d.DeliveryID)
		telemetry.RecordError(span, err)
		return Result{}, fmt.Errorf("webhook: reconciling delivery: %w", err)
	}

	outcome := deliveryOutcome(mergeResult.Status)
	a.recordOutcome(ctx, t.ID, d.DeliveryID, outcome)
	span.SetAttributes(attribute.String(telemetry.SpanAttrOutcome, string(outcome)))

	return Result{Outcome: outcome, Revision: mergeResult.Revision}, nil
}

func (a *Admitter) resolveTenant(ctx context.Context, shopDomain string) (*tenant.Tenant, error) {
	domain, err := tenant.NormalizeShopDomain(shopDomain)
	if err != nil {
		return nil, webhook.ErrUnknownTenant
	}
	t, err := a.tenants.FindByShopDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, webhook.ErrUnknownTenant
		}
		return nil, fmt.Errorf("webhook: resolving tenant: %w", err)
	}
	if !t.IsActive() {
		return nil, webhook.ErrUnknownTenant
	}
	return t, nil
}

// recordOutcome is best effort: a dedup store failure after reconciliation
// must not fail the delivery
func (a *Admitter) recordOutcome(ctx context.Context, tenantID uuid.UUID, deliveryID string, outcome webhook.DeliveryOutcome) {
	if deliveryID == "" {
		return
	}
	if err := a.deliveries.RecordOutcome(ctx, tenantID, deliveryID, outcome); err != nil {
		a.logger.Warn("failed to record delivery outcome",
			zap.String("tenant_id", tenantID.String()),
			zap.String("delivery_id", deliveryID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}

func (a *Admitter) unregister(ctx context.Context, tenantID uuid.UUID, deliveryID string) {
	if deliveryID == "" {
		return
	}
	if err := a.deliveries.Unregister(ctx, tenantID, deliveryID); err != nil {
		a.logger.Warn("failed to unregister delivery",
			zap.String("tenant_id", tenantID.String()),
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
	}
}

func deliveryOutcome(status reconcile.Status) webhook.DeliveryOutcome {
	switch status {
	case reconcile.StatusApplied:
		return webhook.DeliveryOutcomeApplied
	case reconcile.StatusStale:
		return webhook.DeliveryOutcomeStale
	default:
		return webhook.DeliveryOutcomeFailed
	}
}

// verifySignature checks the base64 HMAC-SHA256 of body against the header
// value in constant time
func verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
