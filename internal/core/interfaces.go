// Package core defines the repository ports between the service layer and
// the data layer. Services depend on these interfaces, not on concrete
// implementations.
package core

import (
	"context"
	"time"

	"github.com/fabworks/jobshop/internal/domain/model"
)

// ApplyDeltaParams groups parameters for JobRepository.ApplyDelta to keep
// parameter count ≤3.
type ApplyDeltaParams struct {
	// Envelope is the structurally valid envelope to apply.
	Envelope *model.DeltaEnvelope
	// Compensates references the change_id this delta reverses (undo only).
	Compensates *string
	// Validate runs against the live, row-locked job inside the apply
	// transaction. A non-nil error aborts the transaction untouched; the
	// error is returned to the caller as-is.
	Validate func(live *model.JobRecord) error
}

// JobRepository defines the interface for job data operations. All
// delta-managed mutation goes through ApplyDelta, which is the only write
// path that bumps the version token.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.JobRecord, error)
	GetByID(ctx context.Context, id string) (*model.JobRecord, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobRecord, error)
	// Delete removes an archived job. Non-archived jobs are not deletable.
	Delete(ctx context.Context, id string) error
	// ApplyDelta applies an envelope atomically: lock row, run Validate,
	// write After values, bump version, insert the JobEvent. Returns the
	// updated job and the created event.
	ApplyDelta(ctx context.Context, params ApplyDeltaParams) (*model.JobRecord, *model.JobEvent, error)
}

// EventRepository defines read access to the append-only JobEvent ledger.
// Event creation happens inside JobRepository.ApplyDelta.
type EventRepository interface {
	GetByChangeID(ctx context.Context, changeID string) (*model.JobEvent, error)
	// ListByJob returns events for a job ordered by created_at ascending.
	ListByJob(ctx context.Context, jobID string, page Page) ([]*model.JobEvent, error)
	// CountNewerActive counts events on a job created after the given
	// instant that have not themselves been compensated. Used by the undo
	// safety guard.
	CountNewerActive(ctx context.Context, jobID string, after time.Time) (int, error)
	// HasCompensation reports whether a compensating event already
	// references the given change id.
	HasCompensation(ctx context.Context, changeID string) (bool, error)
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// RejectionRepository persists and prunes delta-rejection telemetry.
type RejectionRepository interface {
	Record(ctx context.Context, rejection *model.JobDeltaRejection) error
	ListByJob(ctx context.Context, jobID string, page Page) ([]*model.JobDeltaRejection, error)
	// PruneOlderThan deletes rejections created before cutoff, in batches.
	// Returns the number of rows deleted.
	PruneOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// VersionCache caches job version tokens for the ETag fast path. Misses and
// cache failures are never fatal; the authoritative check happens inside
// the apply transaction.
type VersionCache interface {
	// GetVersion returns (version, true) on a hit, (0, false) on a miss.
	GetVersion(ctx context.Context, jobID string) (int64, bool, error)
	SetVersion(ctx context.Context, jobID string, version int64) error
	Invalidate(ctx context.Context, jobID string) error
}
