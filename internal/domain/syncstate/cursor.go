package syncstate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Run outcomes
// ---------------------------------------------------------------------------

// Outcome is the result of one orchestrated sync run for a tenant+resource
type Outcome string

const (
	// OutcomeSucceeded indicates every page was fetched and every record handled
	OutcomeSucceeded Outcome = "SUCCEEDED"
	// OutcomePartial indicates the run ended early (rate limit, transient
	// failure, cancellation) or skipped malformed records; state was
	// preserved for resumption
	OutcomePartial Outcome = "PARTIAL"
	// OutcomeFailed indicates the run applied nothing
	OutcomeFailed Outcome = "FAILED"
)

// IsValid returns true if the outcome is valid
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSucceeded, OutcomePartial, OutcomeFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of Outcome
func (o Outcome) String() string {
	return string(o)
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// Cursor is the persisted progress marker for one (tenant, resource) poll
// stream. It exists from the first sync attempt onward and is never deleted
// while the tenant is active.
type Cursor struct {
	TenantID            uuid.UUID
	Resource            integration.ResourceType
	// Watermark is the last successfully merged source watermark; the zero
	// value means no record has ever been applied (next run is a full sync)
	Watermark           time.Time
	LastRunAt           time.Time
	LastOutcome         Outcome
	ConsecutiveFailures int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewCursor creates the initial cursor for a tenant+resource
func NewCursor(tenantID uuid.UUID, resource integration.ResourceType) *Cursor {
	now := time.Now()
	return &Cursor{
		TenantID:  tenantID,
		Resource:  resource,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyRun folds one finished run into the cursor. The watermark only moves
// forward. The consecutive-failure counter resets on a successful run or a
// partial run that applied at least one record, and increments on a failed
// run that applied nothing; other combinations leave it unchanged.
func (c *Cursor) ApplyRun(watermark time.Time, outcome Outcome, applied int) {
	if watermark.After(c.Watermark) {
		c.Watermark = watermark
	}
	c.LastRunAt = time.Now()
	c.LastOutcome = outcome

	switch {
	case outcome == OutcomeSucceeded:
		c.ConsecutiveFailures = 0
	case outcome == OutcomePartial && applied > 0:
		c.ConsecutiveFailures = 0
	case outcome == OutcomeFailed && applied == 0:
		c.ConsecutiveFailures++
	}
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Tracker
// ---------------------------------------------------------------------------

// Tracker persists sync cursors. Commit is the only cursor mutator and is
// called exactly once per orchestrated run, whatever the run's outcome, so
// status reporting always reflects the most recent attempt.
type Tracker interface {
	// GetCursor returns the cursor for a tenant+resource, or nil if the
	// pair has never been synced
	GetCursor(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType) (*Cursor, error)

	// Commit records the outcome of one run and returns the updated cursor
	Commit(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType, watermark time.Time, outcome Outcome, applied int) (*Cursor, error)

	// ListCursors returns all cursors for a tenant
	ListCursors(ctx context.Context, tenantID uuid.UUID) ([]Cursor, error)
}
