// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"stratum/internal/shared/biztime"
	"stratum/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterMigrationJobs registers the migration coordinator poll job.
// Each tick picks up runnable migration jobs and advances them one
// phase; singleton mode keeps ticks from overlapping when a copy phase
// outruns the poll interval.
func (m *SchedulerManager) RegisterMigrationJobs(runner BatchJob, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runMigrationBatch(ctx, runner)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("migration", "coordinator"),
		gocron.WithName("migration-coordinator"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered migration coordinator job", "poll_interval", pollInterval)
	return nil
}

func (m *SchedulerManager) runMigrationBatch(ctx context.Context, runner BatchJob) {
	m.logger.Debugw("migration coordinator tick started")

	startTime := biztime.NowUTC()

	advanced, err := runner.Execute(ctx)
	if err != nil {
		// Cancellation during graceful shutdown is not an error.
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("migration coordinator tick failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if advanced > 0 {
		m.logger.Infow("migration jobs advanced",
			"count", advanced,
			"duration", time.Since(startTime),
		)
	}
}

// RegisterReclaimJobs registers the hourly reclamation job that removes
// finished migration jobs older than the retention grace period.
func (m *SchedulerManager) RegisterReclaimJobs(reclaimer BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runReclaim(ctx, reclaimer)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("migration", "reclaim"),
		gocron.WithName("migration-reclaim"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered migration reclaim job", "interval", "1h")
	return nil
}

func (m *SchedulerManager) runReclaim(ctx context.Context, reclaimer BatchJob) {
	reclaimed, err := reclaimer.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("migration reclaim failed", "error", err)
		return
	}

	if reclaimed > 0 {
		m.logger.Infow("finished migration jobs reclaimed", "count", reclaimed)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
