package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/reconcile"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/telemetry"
)

var (
	// ErrSyncDisabled indicates the tenant is inactive or has syncing held
	ErrSyncDisabled = errors.New("poll: sync disabled for tenant")
)

// Config bounds one orchestrated run
type Config struct {
	// PageSize is the number of records requested per page
	PageSize int
	// MaxPagesPerRun caps pages fetched per tenant+resource per run; the
	// committed watermark lets the next run resume where this one stopped
	MaxPagesPerRun int
}

// DefaultConfig returns the default orchestrator bounds
func DefaultConfig() Config {
	return Config{PageSize: 250, MaxPagesPerRun: 500}
}

// Orchestrator drives scheduled and manually triggered pull syncs. Each
// (tenant, resource) stream runs at most once concurrently; an overlapping
// trigger is skipped, not queued. Every started stream commits its cursor
// exactly once, whatever the outcome.
type Orchestrator struct {
	tenants    tenant.Repository
	client     integration.StorefrontClient
	reconciler *reconcile.Reconciler
	tracker    syncstate.Tracker
	config     Config
	logger     *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrchestrator creates a poll orchestrator
func NewOrchestrator(
	tenants tenant.Repository,
	client integration.StorefrontClient,
	reconciler *reconcile.Reconciler,
	tracker syncstate.Tracker,
	config Config,
	log *zap.Logger,
) *Orchestrator {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.MaxPagesPerRun <= 0 {
		config.MaxPagesPerRun = DefaultConfig().MaxPagesPerRun
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		tenants:    tenants,
		client:     client,
		reconciler: reconciler,
		tracker:    tracker,
		config:     config,
		logger:     log,
		inFlight:   make(map[string]struct{}),
	}
}

// SyncTenant runs every resource stream for one tenant and returns the
// per-resource report. It returns ErrSyncDisabled without touching any
// cursor when the tenant may not sync.
func (o *Orchestrator) SyncTenant(ctx context.Context, tenantID uuid.UUID) (*syncstate.Report, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "poll", "sync_tenant",
		attribute.String(telemetry.SpanAttrTenantID, tenantID.String()),
	)
	defer span.End()

	t, err := o.tenants.FindByID(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("poll: loading tenant: %w", err)
	}
	if !t.CanSync() {
		return nil, ErrSyncDisabled
	}

	report := syncstate.NewReport(tenantID)
	for _, resource := range integration.AllResourceTypes() {
		report.Resources[resource] = o.SyncResource(ctx, t, resource)
		if ctx.Err() != nil {
			break
		}
	}
	report.Finish()

	o.logger.Info("tenant sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("shop_domain", t.ShopDomain),
		zap.Int("applied", report.TotalApplied()),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// SyncResource runs one resource stream for a tenant. A stream already in
// flight for the same tenant+resource is skipped.
func (o *Orchestrator) SyncResource(ctx context.Context, t *tenant.Tenant, resource integration.ResourceType) *syncstate.ResourceResult {
	if !o.acquire(t.ID, resource) {
		o.logger.Debug("sync already in flight, skipping",
			zap.String("tenant_id", t.ID.String()),
			zap.String("resource", resource.String()),
		)
		return &syncstate.ResourceResult{Skipped: true}
	}
	defer o.release(t.ID, resource)

	ctx, span := telemetry.StartServiceSpan(ctx, "poll", "sync_resource",
		attribute.String(telemetry.SpanAttrTenantID, t.ID.String()),
		attribute.String(telemetry.SpanAttrResource, resource.String()),
	)
	defer span.End()

	result := o.runStream(ctx, t, resource)

	cursor, err := o.tracker.Commit(ctx, t.ID, resource, result.Watermark, result.Outcome, result.Applied)
	if err != nil {
		o.logger.Error("failed to commit sync cursor",
			zap.String("tenant_id", t.ID.String()),
			zap.String("resource", resource.String()),
			zap.Error(err),
		)
		telemetry.RecordError(span, err)
		if result.Err == "" {
			result.Err = err.Error()
		}
	} else {
		result.Watermark = cursor.Watermark
	}

	span.SetAttributes(
		attribute.String(telemetry.SpanAttrOutcome, result.Outcome.String()),
		attribute.Int(telemetry.SpanAttrPage, result.Pages),
	)
	o.logger.Info("resource sync finished",
		zap.String("tenant_id", t.ID.String()),
		zap.String("resource", resource.String()),
		zap.String("outcome", result.Outcome.String()),
		zap.Int("pages", result.Pages),
		zap.Int("applied", result.Applied),
		zap.Int("stale", result.Stale),
		zap.Int("malformed", result.Malformed),
	)
	return result
}

// runStream pages through one resource collection until it is exhausted, the
// page cap is reached, or an error classification ends the run
func (o *Orchestrator) runStream(ctx context.Context, t *tenant.Tenant, resource integration.ResourceType) *syncstate.ResourceResult {
	result := &syncstate.ResourceResult{}

	cursor, err := o.tracker.GetCursor(ctx, t.ID, resource)
	if err != nil {
		result.Outcome = syncstate.OutcomeFailed
		result.Err = fmt.Sprintf("loading cursor: %v", err)
		return result
	}

	var updatedAtMin time.Time
	if cursor != nil {
		updatedAtMin = cursor.Watermark
	}

	pageToken := ""
	for {
		// Revocation and deactivation take effect at the next page boundary
		if current, err := o.tenants.FindByID(ctx, t.ID); err != nil {
			o.logger.Warn("tenant recheck failed, continuing run",
				zap.String("tenant_id", t.ID.String()),
				zap.String("resource", resource.String()),
				zap.Error(err),
			)
		} else if !current.CanSync() {
			result.Outcome = syncstate.OutcomePartial
			result.Err = "sync disabled during run"
			return result
		}

		page, err := o.client.FetchPage(ctx, t.Credentials(), resource, integration.PageRequest{
			UpdatedAtMin: updatedAtMin,
			PageToken:    pageToken,
			PageSize:     o.config.PageSize,
		})
		if err != nil {
			o.classifyFetchError(ctx, t, resource, err, result)
			return result
		}
		result.Pages++

		for _, record := range page.Records {
			if ctx.Err() != nil {
				result.Outcome = syncstate.OutcomePartial
				result.Err = ctx.Err().Error()
				return result
			}

			mergeResult, err := o.reconciler.Merge(ctx, t.ID, resource, record)
			if err != nil {
				if result.Applied > 0 {
					result.Outcome = syncstate.OutcomePartial
				} else {
					result.Outcome = syncstate.OutcomeFailed
				}
				result.Err = err.Error()
				return result
			}

			switch mergeResult.Status {
			case reconcile.StatusApplied:
				result.Applied++
				if record.UpdatedAt.After(result.Watermark) {
					result.Watermark = record.UpdatedAt
				}
			case reconcile.StatusStale:
				result.Stale++
			case reconcile.StatusMalformed:
				result.Malformed++
			}
		}

		if !page.HasMore {
			if result.Malformed > 0 {
				result.Outcome = syncstate.OutcomePartial
			} else {
				result.Outcome = syncstate.OutcomeSucceeded
			}
			return result
		}
		if result.Pages >= o.config.MaxPagesPerRun {
			result.Outcome = syncstate.OutcomePartial
			result.Err = "page cap reached"
			return result
		}
		pageToken = page.NextPageToken
	}
}

// classifyFetchError maps a storefront fetch failure to a run outcome. Auth
// failures additionally put the tenant's syncing on hold until the
// credential is rotated.
func (o *Orchestrator) classifyFetchError(ctx context.Context, t *tenant.Tenant, resource integration.ResourceType, err error, result *syncstate.ResourceResult) {
	result.Err = err.Error()

	switch {
	case errors.Is(err, integration.ErrAuthFailed):
		o.holdTenantSync(ctx, t, resource)
		result.Outcome = syncstate.OutcomeFailed
	case errors.Is(err, integration.ErrRateLimited),
		errors.Is(err, integration.ErrTransient),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		result.Outcome = syncstate.OutcomePartial
	default:
		result.Outcome = syncstate.OutcomeFailed
	}
}

func (o *Orchestrator) holdTenantSync(ctx context.Context, t *tenant.Tenant, resource integration.ResourceType) {
	t.DisableSync("storefront rejected access token")
	if err := o.tenants.Save(ctx, t); err != nil {
		o.logger.Error("failed to hold tenant sync after auth failure",
			zap.String("tenant_id", t.ID.String()),
			zap.Error(err),
		)
		return
	}
	o.logger.Warn("tenant sync held until credential rotation",
		zap.String("tenant_id", t.ID.String()),
		zap.String("shop_domain", t.ShopDomain),
		zap.String("resource", resource.String()),
	)
}

func (o *Orchestrator) acquire(tenantID uuid.UUID, resource integration.ResourceType) bool {
	key := tenantID.String() + "/" + resource.String()
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.inFlight[key]; running {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

func (o *Orchestrator) release(tenantID uuid.UUID, resource integration.ResourceType) {
	key := tenantID.String() + "/" + resource.String()
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}
