package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/canonical"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/telemetry"
)

// Status classifies what a merge did with one raw record
type Status string

const (
	// StatusApplied means the record was inserted or updated
	StatusApplied Status = "APPLIED"
	// StatusStale means the stored row already supersedes the record
	StatusStale Status = "STALE"
	// StatusMalformed means the record could not be parsed and was skipped
	StatusMalformed Status = "MALFORMED"
)

// Result reports the outcome of reconciling one raw record
type Result struct {
	Status Status
	// Revision is the canonical row's revision after the call, zero for
	// malformed records
	Revision int
}

// Reconciler turns raw storefront records into canonical rows. It is the
// single write path for canonical data: both the webhook admitter and the
// poll orchestrator feed records through it, so a record arriving on both
// paths converges on the same row.
type Reconciler struct {
	store  canonical.Store
	logger *zap.Logger
}

// NewReconciler creates a reconciler backed by the given canonical store
func NewReconciler(store canonical.Store, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, logger: log}
}

// Merge parses one raw record and merges it into the canonical store.
// Malformed records are logged with replay context and reported as
// StatusMalformed with a nil error; only store failures return an error.
func (r *Reconciler) Merge(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType, raw integration.RawRecord) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconcile", "merge",
		attribute.String(telemetry.SpanAttrTenantID, tenantID.String()),
		attribute.String(telemetry.SpanAttrResource, resource.String()),
	)
	defer span.End()

	outcome, err := r.merge(ctx, tenantID, resource, raw)
	if err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			r.logMalformed(tenantID, resource, raw, err)
			span.SetAttributes(attribute.String(telemetry.SpanAttrOutcome, string(StatusMalformed)))
			return Result{Status: StatusMalformed}, nil
		}
		telemetry.RecordError(span, err)
		return Result{}, err
	}

	result := Result{Status: StatusStale, Revision: outcome.Revision}
	if outcome.Applied {
		result.Status = StatusApplied
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrOutcome, string(result.Status)))
	return result, nil
}

func (r *Reconciler) merge(ctx context.Context, tenantID uuid.UUID, resource integration.ResourceType, raw integration.RawRecord) (canonical.MergeOutcome, error) {
	switch resource {
	case integration.ResourceCustomers:
		c, err := parseCustomer(tenantID, raw)
		if err != nil {
			return canonical.MergeOutcome{}, err
		}
		return r.store.MergeCustomer(ctx, c)
	case integration.ResourceOrders:
		o, err := parseOrder(tenantID, raw)
		if err != nil {
			return canonical.MergeOutcome{}, err
		}
		return r.store.MergeOrder(ctx, o)
	case integration.ResourceProducts:
		p, err := parseProduct(tenantID, raw)
		if err != nil {
			return canonical.MergeOutcome{}, err
		}
		return r.store.MergeProduct(ctx, p)
	case integration.ResourceCheckouts:
		e, err := parseCheckoutEvent(tenantID, raw)
		if err != nil {
			return canonical.MergeOutcome{}, err
		}
		return r.store.MergeCheckoutEvent(ctx, e)
	default:
		return canonical.MergeOutcome{}, fmt.Errorf("reconcile: unknown resource type %q", resource)
	}
}

// logMalformed records enough context to find and replay the record at the
// source. The payload body itself is never logged.
func (r *Reconciler) logMalformed(tenantID uuid.UUID, resource integration.ResourceType, raw integration.RawRecord, err error) {
	r.logger.Warn("malformed record skipped",
		zap.String("tenant_id", tenantID.String()),
		zap.String("resource", resource.String()),
		zap.String("external_id", raw.ExternalID),
		zap.Int("payload_bytes", len(raw.Payload)),
		zap.Error(err),
	)
}
