package migration

import (
	"context"
	"time"
)

// ListFilter narrows job listings.
type ListFilter struct {
	TenantSID string
	State     *JobState
	Page      int
	PageSize  int
}

// Repository defines persistence for migration jobs.
//
// Update implementations enforce optimistic concurrency on the job
// version so two coordinator instances cannot drive the same job.
type Repository interface {
	// Create persists a new job and assigns its database ID.
	Create(ctx context.Context, job *Job) error

	// Update persists job changes guarded by the loaded version.
	Update(ctx context.Context, job *Job) error

	// GetBySID retrieves a job by its public short ID.
	GetBySID(ctx context.Context, sid string) (*Job, error)

	// GetActiveByTenant returns the tenant's non-terminal job, if any.
	GetActiveByTenant(ctx context.Context, tenantSID string) (*Job, error)

	// ListRunnable returns jobs the coordinator should pick up, oldest
	// first: pending jobs plus jobs parked mid-phase by a restart.
	ListRunnable(ctx context.Context, limit int) ([]*Job, error)

	// List returns jobs matching the filter with a total count.
	List(ctx context.Context, filter ListFilter) ([]*Job, int64, error)

	// ListFinishedBefore returns terminal jobs whose completion is
	// older than the cutoff, oldest first.
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error)

	// DeleteFinishedBefore removes terminal jobs whose completion is
	// older than the cutoff. Returns the number of jobs removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
