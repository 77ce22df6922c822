package syncstate

import (
	"time"

	"github.com/google/uuid"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
)

// Report summarizes one orchestrated sync run across a tenant's resources
type Report struct {
	TenantID   uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	// Resources holds one result per resource attempted, keyed by type
	Resources map[integration.ResourceType]*ResourceResult
}

// ResourceResult is the outcome of one resource stream within a run
type ResourceResult struct {
	Outcome   Outcome
	// Skipped is true when the run was not started because another run for
	// the same tenant+resource was already in flight
	Skipped   bool
	Pages     int
	Applied   int
	Stale     int
	Malformed int
	Watermark time.Time
	Err       string
}

// NewReport creates an empty report for a tenant run
func NewReport(tenantID uuid.UUID) *Report {
	return &Report{
		TenantID:  tenantID,
		StartedAt: time.Now(),
		Resources: make(map[integration.ResourceType]*ResourceResult),
	}
}

// TotalApplied returns the number of records applied across all resources
func (r *Report) TotalApplied() int {
	n := 0
	for _, res := range r.Resources {
		n += res.Applied
	}
	return n
}

// Finish stamps the report's completion time
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
}
