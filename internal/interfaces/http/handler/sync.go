package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/scheduler"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/dto"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// SyncJobResponse describes a scheduled or running sync job
type SyncJobResponse struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	ShopDomain string     `json:"shop_domain"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
	Applied    int        `json:"applied"`
	Stale      int        `json:"stale"`
	Malformed  int        `json:"malformed"`
}

func newSyncJobResponse(job *scheduler.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:         job.ID.String(),
		TenantID:   job.TenantID.String(),
		ShopDomain: job.ShopDomain,
		Trigger:    string(job.Trigger),
		Status:     string(job.Status),
		Error:      job.Error,
		EnqueuedAt: job.EnqueuedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Pages:      job.Pages,
		Applied:    job.Applied,
		Stale:      job.Stale,
		Malformed:  job.Malformed,
	}
}

// SyncCursorResponse describes poll progress for one resource stream
type SyncCursorResponse struct {
	Resource            string     `json:"resource"`
	Watermark           *time.Time `json:"watermark,omitempty"`
	LastRunAt           *time.Time `json:"last_run_at,omitempty"`
	LastOutcome         string     `json:"last_outcome,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

func newSyncCursorResponse(c syncstate.Cursor) SyncCursorResponse {
	resp := SyncCursorResponse{
		Resource:            string(c.Resource),
		LastOutcome:         string(c.LastOutcome),
		ConsecutiveFailures: c.ConsecutiveFailures,
	}
	if !c.Watermark.IsZero() {
		w := c.Watermark
		resp.Watermark = &w
	}
	if !c.LastRunAt.IsZero() {
		t := c.LastRunAt
		resp.LastRunAt = &t
	}
	return resp
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

// SyncHandler exposes manual sync triggering and sync-state inspection
type SyncHandler struct {
	BaseHandler
	scheduler *scheduler.SyncScheduler
	tenants   tenant.Repository
	tracker   syncstate.Tracker
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(sched *scheduler.SyncScheduler, tenants tenant.Repository, tracker syncstate.Tracker) *SyncHandler {
	return &SyncHandler{scheduler: sched, tenants: tenants, tracker: tracker}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/tenants/:id/sync", h.Trigger)
	r.GET("/tenants/:id/sync/status", h.Status)
	r.GET("/tenants/:id/sync/history", h.History)
}

// Trigger enqueues a manual sync job for a tenant
func (h *SyncHandler) Trigger(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	t, err := h.tenants.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !t.CanSync() {
		h.Error(c, http.StatusConflict, dto.ErrCodeInvalidState, "Sync is disabled for this tenant")
		return
	}

	job, err := h.scheduler.TriggerTenant(t.ID, t.ShopDomain)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrJobQueueFull):
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeRateLimited, "Sync queue is full, retry later")
		case errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Sync scheduler is not running")
		default:
			h.HandleError(c, err)
		}
		return
	}
	h.Accepted(c, newSyncJobResponse(job))
}

// Status returns the poll cursors for a tenant
func (h *SyncHandler) Status(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.tenants.FindByID(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	cursors, err := h.tracker.ListCursors(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]SyncCursorResponse, 0, len(cursors))
	for _, cur := range cursors {
		resp = append(resp, newSyncCursorResponse(cur))
	}
	h.Success(c, resp)
}

// History returns recent sync jobs for a tenant, newest first
func (h *SyncHandler) History(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	jobs := h.scheduler.HistoryByTenant(id, limit)
	resp := make([]SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, newSyncJobResponse(job))
	}
	h.Success(c, resp)
}
