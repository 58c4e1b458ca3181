package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"stratum/internal/domain/tenant"
	"stratum/internal/shared/biztime"
	"stratum/internal/shared/id"
)

// JobState is a migration job's position in its lifecycle.
type JobState string

const (
	// StatePending means the job is queued and no data has moved yet.
	StatePending JobState = "pending"

	// StateCopying means bulk data copy to the destination is running.
	StateCopying JobState = "copying"

	// StateVerifying means source and destination are being compared.
	// Every job passes through this state; cutover is only reachable
	// from here.
	StateVerifying JobState = "verifying"

	// StateCutover means writes are frozen and the placement swap is in
	// progress.
	StateCutover JobState = "cutover"

	// StateComplete means the tenant now routes to the destination.
	StateComplete JobState = "complete"

	// StateFailed means the job stopped without cutting over. The
	// tenant keeps routing to the source.
	StateFailed JobState = "failed"
)

// IsValid checks whether the state is a known job state.
func (s JobState) IsValid() bool {
	switch s {
	case StatePending, StateCopying, StateVerifying, StateCutover, StateComplete, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

func (s JobState) String() string {
	return string(s)
}

// ParseJobState converts a string into a JobState.
func ParseJobState(s string) (JobState, error) {
	state := JobState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, s)
	}
	return state, nil
}

// Job tracks a single tier migration for one tenant. Transitions are
// guarded so the lifecycle always runs
// pending -> copying -> verifying -> cutover -> complete, with failed
// reachable from any non-terminal state.
type Job struct {
	id            uint
	sid           string
	correlationID uuid.UUID
	tenantSID     string
	source        tenant.ConnectionTarget
	destination   tenant.ConnectionTarget
	state         JobState
	failureReason string
	rowsCopied    int64
	attempt       int
	startedAt     *time.Time
	completedAt   *time.Time
	version       int
	createdAt     time.Time
	updatedAt     time.Time
}

// NewJob queues a migration for the given tenant between two placements.
func NewJob(tenantSID string, source, destination tenant.ConnectionTarget) (*Job, error) {
	if tenantSID == "" {
		return nil, ErrEmptyTenant
	}
	if source.IsZero() || destination.IsZero() {
		return nil, ErrInvalidEndpoints
	}
	if source.Equal(destination) {
		return nil, ErrSameEndpoints
	}

	sid, err := id.NewMigrationJobSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate migration job SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Job{
		sid:           sid,
		correlationID: uuid.New(),
		tenantSID:     tenantSID,
		source:        source,
		destination:   destination,
		state:         StatePending,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructJob rebuilds a job from persistence.
func ReconstructJob(
	dbID uint,
	sid string,
	correlationID uuid.UUID,
	tenantSID string,
	source tenant.ConnectionTarget,
	destination tenant.ConnectionTarget,
	state JobState,
	failureReason string,
	rowsCopied int64,
	attempt int,
	startedAt *time.Time,
	completedAt *time.Time,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) *Job {
	return &Job{
		id:            dbID,
		sid:           sid,
		correlationID: correlationID,
		tenantSID:     tenantSID,
		source:        source,
		destination:   destination,
		state:         state,
		failureReason: failureReason,
		rowsCopied:    rowsCopied,
		attempt:       attempt,
		startedAt:     startedAt,
		completedAt:   completedAt,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (j *Job) ID() uint { return j.id }

func (j *Job) SID() string { return j.sid }

func (j *Job) CorrelationID() uuid.UUID { return j.correlationID }

func (j *Job) TenantSID() string { return j.tenantSID }

func (j *Job) State() JobState { return j.state }

func (j *Job) FailureReason() string { return j.failureReason }

func (j *Job) RowsCopied() int64 { return j.rowsCopied }

func (j *Job) Attempt() int { return j.attempt }

func (j *Job) Version() int { return j.version }

func (j *Job) CreatedAt() time.Time { return j.createdAt }

func (j *Job) UpdatedAt() time.Time { return j.updatedAt }

// Source returns the placement data is copied from.
func (j *Job) Source() tenant.ConnectionTarget { return j.source }

// Destination returns the placement data is copied to.
func (j *Job) Destination() tenant.ConnectionTarget { return j.destination }

// StartedAt returns when the copy phase began, nil if never started.
func (j *Job) StartedAt() *time.Time {
	if j.startedAt == nil {
		return nil
	}
	cp := *j.startedAt
	return &cp
}

// CompletedAt returns when the job reached a terminal state.
func (j *Job) CompletedAt() *time.Time {
	if j.completedAt == nil {
		return nil
	}
	cp := *j.completedAt
	return &cp
}

// StartCopy moves the job from pending into the copy phase.
func (j *Job) StartCopy() error {
	if err := j.guard(StatePending); err != nil {
		return err
	}
	now := biztime.NowUTC()
	j.startedAt = &now
	j.attempt++
	j.state = StateCopying
	j.touch()
	return nil
}

// MarkVerifying moves the job from copying into verification.
func (j *Job) MarkVerifying() error {
	if err := j.guard(StateCopying); err != nil {
		return err
	}
	j.state = StateVerifying
	j.touch()
	return nil
}

// RetryCopy sends a job whose verification found drift back to the copy
// phase for a delta pass.
func (j *Job) RetryCopy() error {
	if err := j.guard(StateVerifying); err != nil {
		return err
	}
	j.attempt++
	j.state = StateCopying
	j.touch()
	return nil
}

// BeginCutover moves the job into the cutover phase. Only a verified
// job may cut over.
func (j *Job) BeginCutover() error {
	if err := j.guard(StateVerifying); err != nil {
		return err
	}
	j.state = StateCutover
	j.touch()
	return nil
}

// Complete finishes the job after a successful cutover.
func (j *Job) Complete() error {
	if err := j.guard(StateCutover); err != nil {
		return err
	}
	now := biztime.NowUTC()
	j.completedAt = &now
	j.state = StateComplete
	j.touch()
	return nil
}

// Fail stops the job with a reason. Allowed from any non-terminal state.
func (j *Job) Fail(reason string) error {
	if j.state.Terminal() {
		return fmt.Errorf("%w: job is %s", ErrTerminalState, j.state)
	}
	now := biztime.NowUTC()
	j.completedAt = &now
	j.failureReason = reason
	j.state = StateFailed
	j.touch()
	return nil
}

// RecordProgress updates the copied row counter.
func (j *Job) RecordProgress(rowsCopied int64) {
	if rowsCopied > j.rowsCopied {
		j.rowsCopied = rowsCopied
		j.touch()
	}
}

// SetID assigns the database ID after persistence.
func (j *Job) SetID(dbID uint) {
	j.id = dbID
}

// BumpVersion advances the optimistic-lock version to match what the
// repository just wrote, so the same aggregate can be updated again
// without a reload.
func (j *Job) BumpVersion() {
	j.version++
}

func (j *Job) guard(from JobState) error {
	if j.state.Terminal() {
		return fmt.Errorf("%w: job is %s", ErrTerminalState, j.state)
	}
	if j.state != from {
		return fmt.Errorf("%w: %s -> requested transition valid only from %s", ErrInvalidTransition, j.state, from)
	}
	return nil
}

func (j *Job) touch() {
	j.updatedAt = biztime.NowUTC()
}
