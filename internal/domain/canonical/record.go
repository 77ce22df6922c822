package canonical

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record carries the fields shared by every canonical row. Each row is a
// tenant-scoped mirror of one external entity: the (TenantID, ExternalID)
// pair is unique per entity kind, SourceUpdatedAt is the storefront's
// modification watermark, and Revision counts successful local merges.
//
// Revision only ever increases. A merge whose incoming watermark is not
// strictly newer than SourceUpdatedAt is stale and must not be applied.
type Record struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ExternalID      string
	SourceUpdatedAt time.Time
	Revision        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Supersedes returns true if the stored record is at least as new as the
// incoming watermark, i.e. the incoming data is stale.
func (r *Record) Supersedes(incoming time.Time) bool {
	return !incoming.After(r.SourceUpdatedAt)
}

// MergeOutcome reports what a canonical store merge did
type MergeOutcome struct {
	// Applied is false when the merge was rejected as stale
	Applied bool
	// Revision is the row's revision after the call
	Revision int
}

// Store persists canonical rows. Every Merge* call is one atomic unit: the
// watermark comparison, the row upsert and any derived rows (order line
// items) happen inside a single transaction, and nothing is persisted on
// failure. No caller reads canonical rows to make merge decisions outside
// that transaction.
type Store interface {
	MergeCustomer(ctx context.Context, c *Customer) (MergeOutcome, error)
	MergeOrder(ctx context.Context, o *Order) (MergeOutcome, error)
	MergeProduct(ctx context.Context, p *Product) (MergeOutcome, error)
	MergeCheckoutEvent(ctx context.Context, e *CheckoutEvent) (MergeOutcome, error)
}
