package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/poll"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// JobStatus represents the status of a tenant sync job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusFailed  JobStatus = "FAILED"
	// JobStatusSkipped means the tenant could not sync when the job ran
	// (deactivated or held for credential rotation)
	JobStatusSkipped JobStatus = "SKIPPED"
)

// JobTrigger records what enqueued a sync job
type JobTrigger string

const (
	TriggerScheduled JobTrigger = "scheduled"
	TriggerManual    JobTrigger = "manual"
)

// SyncJob is one enqueued tenant sync
type SyncJob struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ShopDomain string
	Trigger    JobTrigger
	Status     JobStatus
	Error      string
	EnqueuedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	// Aggregated run totals across all resource streams
	Pages     int
	Applied   int
	Stale     int
	Malformed int
}

// NewSyncJob creates a pending sync job for a tenant
func NewSyncJob(tenantID uuid.UUID, shopDomain string, trigger JobTrigger) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ShopDomain: shopDomain,
		Trigger:    trigger,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

func (j *SyncJob) start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

func (j *SyncJob) finish(report *syncstate.Report) {
	now := time.Now()
	j.FinishedAt = &now

	attempted, succeeded, failed := 0, 0, 0
	for _, result := range report.Resources {
		if result.Skipped {
			continue
		}
		attempted++
		j.Pages += result.Pages
		j.Applied += result.Applied
		j.Stale += result.Stale
		j.Malformed += result.Malformed
		switch result.Outcome {
		case syncstate.OutcomeSucceeded:
			succeeded++
		case syncstate.OutcomeFailed:
			failed++
		}
		if result.Err != "" && j.Error == "" {
			j.Error = result.Err
		}
	}

	switch {
	case attempted == 0:
		// every stream was already in flight
		j.Status = JobStatusSkipped
	case failed == 0 && j.Error == "" && succeeded == attempted:
		j.Status = JobStatusSuccess
	case succeeded > 0 || j.Applied > 0:
		j.Status = JobStatusPartial
	default:
		j.Status = JobStatusFailed
	}
}

func (j *SyncJob) fail(err error) {
	now := time.Now()
	j.FinishedAt = &now
	j.Error = err.Error()
	if errors.Is(err, poll.ErrSyncDisabled) {
		j.Status = JobStatusSkipped
		return
	}
	j.Status = JobStatusFailed
}

// ---------------------------------------------------------------------------
// Executor and configuration
// ---------------------------------------------------------------------------

// SyncExecutor runs one full tenant sync. *poll.Orchestrator satisfies it.
type SyncExecutor interface {
	SyncTenant(ctx context.Context, tenantID uuid.UUID) (*syncstate.Report, error)
}

// TenantSource lists the tenants eligible for scheduled syncing
type TenantSource interface {
	FindSyncable(ctx context.Context) ([]tenant.Tenant, error)
}

// Config holds configuration for the sync scheduler
type Config struct {
	// Enabled indicates if periodic scheduling runs
	Enabled bool
	// PollInterval is how often every syncable tenant is enqueued
	PollInterval time.Duration
	// WorkerCount is the number of concurrent sync jobs
	WorkerCount int
	// JobTimeout bounds one tenant sync
	JobTimeout time.Duration
	// HistorySize caps the in-memory job history
	HistorySize int
	// QueueSize caps pending jobs
	QueueSize int
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		PollInterval: 15 * time.Minute,
		WorkerCount:  5,
		JobTimeout:   15 * time.Minute,
		HistorySize:  100,
		QueueSize:    100,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.WorkerCount <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler periodically enqueues every syncable tenant and runs the
// jobs on a bounded worker pool. Overlap protection lives in the executor:
// if a tenant's previous run is still in flight when its next job starts,
// the in-flight streams are skipped, not queued.
type SyncScheduler struct {
	config   Config
	executor SyncExecutor
	tenants  TenantSource
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu sync.RWMutex
	history   []*SyncJob
}

// NewSyncScheduler creates a sync scheduler
func NewSyncScheduler(config Config, executor SyncExecutor, tenants TenantSource, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config:   config,
		executor: executor,
		tenants:  tenants,
		logger:   logger,
		jobs:     make(chan *SyncJob, config.QueueSize),
		history:  make([]*SyncJob, 0, config.HistorySize),
	}, nil
}

// Start starts the worker pool and, when enabled, the periodic trigger
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	if s.config.Enabled {
		s.wg.Add(1)
		go s.triggerLoop(ctx)
	}

	s.logger.Info("Sync scheduler started",
		zap.Bool("periodic", s.config.Enabled),
		zap.Int("workers", s.config.WorkerCount),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	// closed under the same lock Submit holds while sending, so a racing
	// Submit either sends before the close or observes isRunning == false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit enqueues one sync job
func (s *SyncScheduler) Submit(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	// non-blocking send under the lock, so Stop cannot close the channel
	// between the running check and the send
	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("trigger", string(job.Trigger)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// TriggerTenant enqueues a manual sync for one tenant
func (s *SyncScheduler) TriggerTenant(tenantID uuid.UUID, shopDomain string) (*SyncJob, error) {
	job := NewSyncJob(tenantID, shopDomain, TriggerManual)
	if err := s.Submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// History returns the most recent finished jobs, newest first
func (s *SyncScheduler) History(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// HistoryByTenant returns recent finished jobs for one tenant, newest first
func (s *SyncScheduler) HistoryByTenant(tenantID uuid.UUID, limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*SyncJob, 0, limit)
	for _, job := range s.history {
		if job.TenantID == tenantID {
			result = append(result, job)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}

// triggerLoop enqueues every syncable tenant each poll interval
func (s *SyncScheduler) triggerLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.enqueueSyncable(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueSyncable(ctx)
		}
	}
}

func (s *SyncScheduler) enqueueSyncable(ctx context.Context) {
	tenants, err := s.tenants.FindSyncable(ctx)
	if err != nil {
		s.logger.Error("Failed to list syncable tenants", zap.Error(err))
		return
	}
	if len(tenants) == 0 {
		s.logger.Debug("No syncable tenants")
		return
	}

	enqueued := 0
	for _, t := range tenants {
		job := NewSyncJob(t.ID, t.ShopDomain, TriggerScheduled)
		if err := s.Submit(job); err != nil {
			s.logger.Warn("Failed to enqueue scheduled sync",
				zap.String("tenant_id", t.ID.String()),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}
	s.logger.Info("Scheduled sync sweep enqueued", zap.Int("tenants", enqueued))
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.start()
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("shop_domain", job.ShopDomain),
		zap.String("trigger", string(job.Trigger)),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	report, err := s.executor.SyncTenant(jobCtx, job.TenantID)
	if err != nil {
		job.fail(err)
		if job.Status == JobStatusSkipped {
			s.logger.Info("Sync job skipped",
				zap.String("job_id", job.ID.String()),
				zap.String("tenant_id", job.TenantID.String()),
				zap.String("reason", job.Error),
			)
		} else {
			s.logger.Error("Sync job failed",
				zap.Int("worker_id", workerID),
				zap.String("job_id", job.ID.String()),
				zap.String("tenant_id", job.TenantID.String()),
				zap.Error(err),
			)
		}
		s.addToHistory(job)
		return
	}

	job.finish(report)
	s.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("pages", job.Pages),
		zap.Int("applied", job.Applied),
		zap.Int("stale", job.Stale),
		zap.Int("malformed", job.Malformed),
	)
	s.addToHistory(job)
}

func (s *SyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}
