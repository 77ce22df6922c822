package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Admission errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidSignature indicates the payload signature did not verify
	ErrInvalidSignature = errors.New("webhook: invalid signature")
	// ErrUnknownTenant indicates the shop domain resolved to no active tenant
	ErrUnknownTenant = errors.New("webhook: unknown or inactive tenant")
	// ErrDuplicateDelivery indicates this delivery ID was already admitted
	// for the tenant. Duplicates are a steady-state outcome, not a failure:
	// the sender still receives a success response.
	ErrDuplicateDelivery = errors.New("webhook: duplicate delivery")
	// ErrUnsupportedTopic indicates a topic outside the ingestable set
	ErrUnsupportedTopic = errors.New("webhook: unsupported topic")
)

// ---------------------------------------------------------------------------
// Topics
// ---------------------------------------------------------------------------

// Topic is a storefront webhook topic, e.g. "orders/create"
type Topic string

const (
	TopicCustomersCreate Topic = "customers/create"
	TopicCustomersUpdate Topic = "customers/update"
	TopicOrdersCreate    Topic = "orders/create"
	TopicOrdersUpdated   Topic = "orders/updated"
	TopicProductsCreate  Topic = "products/create"
	TopicProductsUpdate  Topic = "products/update"
	TopicCheckoutsCreate Topic = "checkouts/create"
	TopicCheckoutsUpdate Topic = "checkouts/update"
)

// Resource maps the topic to the resource collection it belongs to
func (t Topic) Resource() (integration.ResourceType, error) {
	prefix, _, found := strings.Cut(string(t), "/")
	if !found {
		return "", ErrUnsupportedTopic
	}
	resource := integration.ResourceType(prefix)
	if !resource.IsValid() {
		return "", ErrUnsupportedTopic
	}
	return resource, nil
}

// IsValid returns true if the topic is one we ingest
func (t Topic) IsValid() bool {
	switch t {
	case TopicCustomersCreate, TopicCustomersUpdate,
		TopicOrdersCreate, TopicOrdersUpdated,
		TopicProductsCreate, TopicProductsUpdate,
		TopicCheckoutsCreate, TopicCheckoutsUpdate:
		return true
	default:
		return false
	}
}

// String returns the string representation of Topic
func (t Topic) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Delivery records
// ---------------------------------------------------------------------------

// DeliveryOutcome records what happened to an admitted delivery
type DeliveryOutcome string

const (
	// DeliveryOutcomeAdmitted means the delivery passed admission but its
	// reconciliation has not been confirmed. A crash between admission and
	// reconciliation leaves the record in this state; reprocessing is safe
	// because reconciliation is idempotent.
	DeliveryOutcomeAdmitted DeliveryOutcome = "ADMITTED"
	DeliveryOutcomeApplied  DeliveryOutcome = "APPLIED"
	DeliveryOutcomeStale    DeliveryOutcome = "STALE"
	DeliveryOutcomeFailed   DeliveryOutcome = "FAILED"
)

// DeliveryStore is the ephemeral dedup record set for webhook deliveries,
// keyed by (tenant, delivery ID). Entries expire after a retention window.
type DeliveryStore interface {
	// Register atomically records a delivery as admitted. It returns true
	// if the delivery is new and false if the same (tenant, delivery ID)
	// pair was already registered.
	Register(ctx context.Context, tenantID uuid.UUID, deliveryID string, ttl time.Duration) (bool, error)

	// RecordOutcome updates the processing outcome of a registered delivery
	RecordOutcome(ctx context.Context, tenantID uuid.UUID, deliveryID string, outcome DeliveryOutcome) error

	// Unregister removes a registered delivery so a retried send of the
	// same delivery ID is not treated as a duplicate. Removing an unknown
	// delivery is a no-op.
	Unregister(ctx context.Context, tenantID uuid.UUID, deliveryID string) error

	// Close releases store resources
	Close() error
}
