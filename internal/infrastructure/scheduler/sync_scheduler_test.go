package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/poll"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/integration"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/syncstate"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/tenant"
)

type fakeExecutor struct {
	mu      sync.Mutex
	report  *syncstate.Report
	err     error
	runs    []uuid.UUID
	started chan uuid.UUID
}

func (f *fakeExecutor) SyncTenant(_ context.Context, tenantID uuid.UUID) (*syncstate.Report, error) {
	f.mu.Lock()
	f.runs = append(f.runs, tenantID)
	report, err := f.report, f.err
	f.mu.Unlock()
	if f.started != nil {
		f.started <- tenantID
	}
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = syncstate.NewReport(tenantID)
		report.Finish()
	}
	return report, nil
}

func (f *fakeExecutor) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type staticTenantSource struct {
	tenants []tenant.Tenant
}

func (s *staticTenantSource) FindSyncable(_ context.Context) ([]tenant.Tenant, error) {
	return s.tenants, nil
}

func testConfig() Config {
	return Config{
		Enabled:      false,
		PollInterval: time.Minute,
		WorkerCount:  2,
		JobTimeout:   time.Second,
		HistorySize:  5,
		QueueSize:    10,
	}
}

func succeededReport(tenantID uuid.UUID) *syncstate.Report {
	report := syncstate.NewReport(tenantID)
	report.Resources[integration.ResourceCustomers] = &syncstate.ResourceResult{
		Outcome: syncstate.OutcomeSucceeded, Pages: 2, Applied: 7,
	}
	report.Resources[integration.ResourceOrders] = &syncstate.ResourceResult{
		Outcome: syncstate.OutcomeSucceeded, Pages: 1, Applied: 3, Stale: 1,
	}
	report.Finish()
	return report
}

func startScheduler(t *testing.T, config Config, executor SyncExecutor, tenants TenantSource) *SyncScheduler {
	t.Helper()
	s, err := NewSyncScheduler(config, executor, tenants, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitForHistory(t *testing.T, s *SyncScheduler, n int) []*SyncJob {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.History(0)) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return s.History(0)
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"zero job timeout", func(c *Config) { c.JobTimeout = 0 }},
		{"zero history", func(c *Config) { c.HistorySize = 0 }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSyncScheduler_Submit(t *testing.T) {
	t.Run("rejects when not running", func(t *testing.T) {
		s, err := NewSyncScheduler(testConfig(), &fakeExecutor{}, &staticTenantSource{}, zap.NewNop())
		require.NoError(t, err)

		err = s.Submit(NewSyncJob(uuid.New(), "acme.myshopify.com", TriggerManual))
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})

	t.Run("successful job aggregates report totals", func(t *testing.T) {
		tenantID := uuid.New()
		executor := &fakeExecutor{report: succeededReport(tenantID)}
		s := startScheduler(t, testConfig(), executor, &staticTenantSource{})

		job, err := s.TriggerTenant(tenantID, "acme.myshopify.com")
		require.NoError(t, err)

		history := waitForHistory(t, s, 1)
		done := history[0]
		assert.Equal(t, job.ID, done.ID)
		assert.Equal(t, JobStatusSuccess, done.Status)
		assert.Equal(t, TriggerManual, done.Trigger)
		assert.Equal(t, 3, done.Pages)
		assert.Equal(t, 10, done.Applied)
		assert.Equal(t, 1, done.Stale)
		require.NotNil(t, done.FinishedAt)
	})

	t.Run("partial resource outcome marks job partial", func(t *testing.T) {
		tenantID := uuid.New()
		report := syncstate.NewReport(tenantID)
		report.Resources[integration.ResourceCustomers] = &syncstate.ResourceResult{
			Outcome: syncstate.OutcomeSucceeded, Applied: 4,
		}
		report.Resources[integration.ResourceOrders] = &syncstate.ResourceResult{
			Outcome: syncstate.OutcomePartial, Applied: 2, Err: "page cap reached",
		}
		report.Finish()
		s := startScheduler(t, testConfig(), &fakeExecutor{report: report}, &staticTenantSource{})

		_, err := s.TriggerTenant(tenantID, "acme.myshopify.com")
		require.NoError(t, err)

		done := waitForHistory(t, s, 1)[0]
		assert.Equal(t, JobStatusPartial, done.Status)
		assert.Equal(t, "page cap reached", done.Error)
	})

	t.Run("sync disabled tenant is skipped", func(t *testing.T) {
		executor := &fakeExecutor{err: poll.ErrSyncDisabled}
		s := startScheduler(t, testConfig(), executor, &staticTenantSource{})

		_, err := s.TriggerTenant(uuid.New(), "acme.myshopify.com")
		require.NoError(t, err)

		done := waitForHistory(t, s, 1)[0]
		assert.Equal(t, JobStatusSkipped, done.Status)
	})
}

func TestSyncScheduler_History(t *testing.T) {
	t.Run("trims to configured size newest first", func(t *testing.T) {
		config := testConfig()
		config.WorkerCount = 1
		executor := &fakeExecutor{}
		s := startScheduler(t, config, executor, &staticTenantSource{})

		for i := 0; i < 8; i++ {
			_, err := s.TriggerTenant(uuid.New(), "acme.myshopify.com")
			require.NoError(t, err)
		}

		require.Eventually(t, func() bool {
			return executor.runCount() == 8
		}, 2*time.Second, 5*time.Millisecond)

		history := waitForHistory(t, s, 5)
		assert.Len(t, history, config.HistorySize)
	})

	t.Run("filters by tenant", func(t *testing.T) {
		target := uuid.New()
		executor := &fakeExecutor{}
		s := startScheduler(t, testConfig(), executor, &staticTenantSource{})

		_, err := s.TriggerTenant(target, "acme.myshopify.com")
		require.NoError(t, err)
		_, err = s.TriggerTenant(uuid.New(), "other.myshopify.com")
		require.NoError(t, err)

		waitForHistory(t, s, 2)
		mine := s.HistoryByTenant(target, 10)
		require.Len(t, mine, 1)
		assert.Equal(t, target, mine[0].TenantID)
	})
}

func TestSyncScheduler_PeriodicTrigger(t *testing.T) {
	tn, err := tenant.NewTenant("Acme", "acme.myshopify.com", "shpat_test", "whsec_test")
	require.NoError(t, err)

	config := testConfig()
	config.Enabled = true
	config.PollInterval = 20 * time.Millisecond

	executor := &fakeExecutor{}
	s := startScheduler(t, config, executor, &staticTenantSource{tenants: []tenant.Tenant{*tn}})

	require.Eventually(t, func() bool {
		return executor.runCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	for _, job := range s.History(0) {
		assert.Equal(t, TriggerScheduled, job.Trigger)
		assert.Equal(t, tn.ID, job.TenantID)
	}
}

func TestSyncScheduler_Stop(t *testing.T) {
	t.Run("stop is idempotent", func(t *testing.T) {
		s, err := NewSyncScheduler(testConfig(), &fakeExecutor{}, &staticTenantSource{}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))

		require.NoError(t, s.Stop(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("waits for in-flight job", func(t *testing.T) {
		executor := &fakeExecutor{started: make(chan uuid.UUID, 1)}
		s, err := NewSyncScheduler(testConfig(), executor, &staticTenantSource{}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))

		_, err = s.TriggerTenant(uuid.New(), "acme.myshopify.com")
		require.NoError(t, err)
		<-executor.started

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
		assert.Len(t, s.History(0), 1)
	})

	t.Run("concurrent triggers during stop do not panic", func(t *testing.T) {
		s, err := NewSyncScheduler(testConfig(), &fakeExecutor{}, &staticTenantSource{}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Start(context.Background()))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					_, err := s.TriggerTenant(uuid.New(), "acme.myshopify.com")
					if err != nil {
						assert.True(t,
							errors.Is(err, ErrSchedulerNotRunning) || errors.Is(err, ErrJobQueueFull))
					}
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
		wg.Wait()

		_, err = s.TriggerTenant(uuid.New(), "acme.myshopify.com")
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})
}
