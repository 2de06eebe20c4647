// Package devseed populates a development database with sample jobs, a
// short delta history, and a few rejection records so the API has data to
// serve out of the box.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/jobshop/internal/data"
	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
	apperrors "github.com/fabworks/jobshop/internal/errors"
	"github.com/fabworks/jobshop/internal/service"
)

const seedActor = "devseed@jobshop"

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB         *sql.DB
	jobs       *service.JobService
	deltas     *service.DeltaService
	rejections *data.RejectionRepo
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	jobRepo := data.NewJobRepo(db, data.RepoConfig{})
	eventRepo := data.NewEventRepo(db)
	rejectionRepo := data.NewRejectionRepo(db)

	jobs := service.MustNewJobService(service.JobServiceOptions{
		Jobs: jobRepo,
	})
	deltas := service.MustNewDeltaService(service.DeltaServiceOptions{
		Jobs:       jobRepo,
		Events:     eventRepo,
		Rejections: rejectionRepo,
	})

	return Services{
		DB:         db,
		jobs:       jobs,
		deltas:     deltas,
		rejections: rejectionRepo,
	}
}

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	for _, spec := range seedJobs() {
		if err := seedJob(ctx, svcs, logger, spec); err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed job", "name", spec.create.Name, "error", err)
			}
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

// jobSpec describes one seeded job: the create request plus the delta
// history to replay on top of it.
type jobSpec struct {
	create model.CreateJobRequest
	steps  []deltaStep
	// rejected seeds a synthetic stale-write rejection after the history
	// is applied.
	rejected bool
}

// deltaStep is one field change applied through the delta path.
type deltaStep struct {
	field string
	value any
}

func seedJobs() []jobSpec {
	return []jobSpec{
		{
			create: model.CreateJobRequest{
				TenantID:    "00000000-0000-0000-0000-000000000001",
				Name:        "Bracket run, 40 pcs",
				OrderNumber: strPtr("JS-1001"),
				Description: strPtr("Laser-cut steel brackets, powder coat black"),
				QuotedTotal: floatPtr(1840.00),
			},
			steps: []deltaStep{
				{field: "status", value: "accepted_quote"},
				{field: "contact", value: "m.reyes@acmefab.example"},
				{field: "status", value: "in_progress"},
			},
			rejected: true,
		},
		{
			create: model.CreateJobRequest{
				TenantID:    "00000000-0000-0000-0000-000000000001",
				Name:        "Stainless railing repair",
				OrderNumber: strPtr("JS-1002"),
				Notes:       strPtr("Customer drop-off, measure on site first"),
			},
			steps: []deltaStep{
				{field: "quoted_total", value: 620.50},
			},
		},
		{
			create: model.CreateJobRequest{
				TenantID:    "00000000-0000-0000-0000-000000000002",
				Name:        "Prototype enclosure",
				OrderNumber: strPtr("JS-2001"),
				Description: strPtr("Bent aluminum enclosure, one-off"),
			},
			steps: []deltaStep{
				{field: "status", value: "accepted_quote"},
				{field: "notes", value: "Waiting on 2mm 5052 sheet"},
				{field: "status", value: "on_hold"},
			},
		},
		{
			create: model.CreateJobRequest{
				TenantID:    "00000000-0000-0000-0000-000000000002",
				Name:        "Gate hinge batch",
				OrderNumber: strPtr("JS-2002"),
				QuotedTotal: floatPtr(310.00),
			},
			steps: []deltaStep{
				{field: "status", value: "accepted_quote"},
				{field: "status", value: "in_progress"},
				{field: "status", value: "completed"},
			},
		},
	}
}

func seedJob(ctx context.Context, svcs Services, logger *slog.Logger, spec jobSpec) error {
	job, created, err := createJob(ctx, svcs.jobs, spec.create)
	if err != nil {
		return err
	}
	if logger != nil {
		msg := "job already exists"
		if created {
			msg = "created job"
		}
		logger.InfoContext(ctx, msg, "name", spec.create.Name, "job_id", job.ID)
	}
	if !created {
		// History was already replayed on a previous run.
		return nil
	}

	for _, step := range spec.steps {
		job, err = applyStep(ctx, svcs.deltas, job, step)
		if err != nil {
			return fmt.Errorf("apply %s step: %w", step.field, err)
		}
	}

	if spec.rejected {
		if err := seedRejection(ctx, svcs.rejections, job); err != nil {
			return fmt.Errorf("seed rejection: %w", err)
		}
	}
	return nil
}

// createJob creates the job, treating an order-number conflict as "already
// seeded" so reruns are idempotent.
func createJob(
	ctx context.Context,
	svc *service.JobService,
	req model.CreateJobRequest,
) (*model.JobRecord, bool, error) {
	job, err := svc.Create(ctx, &req)
	if err == nil {
		return job, true, nil
	}
	if !apperrors.IsConflict(err) || req.OrderNumber == nil {
		return nil, false, err
	}

	existing, findErr := findByOrderNumber(ctx, svc, req.TenantID, *req.OrderNumber)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

func findByOrderNumber(
	ctx context.Context,
	svc *service.JobService,
	tenantID, orderNumber string,
) (*model.JobRecord, error) {
	jobs, err := svc.List(ctx, &model.JobListOptions{TenantID: tenantID, Limit: 200})
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.OrderNumber != nil && *j.OrderNumber == orderNumber {
			return j, nil
		}
	}
	return nil, fmt.Errorf("job with order number %q not found after conflict", orderNumber)
}

// applyStep submits one field change through the full delta path so the
// seeded history carries real checksums and version tokens.
func applyStep(
	ctx context.Context,
	svc *service.DeltaService,
	job *model.JobRecord,
	step deltaStep,
) (*model.JobRecord, error) {
	live, ok := job.DeltaValue(step.field)
	if !ok {
		return nil, fmt.Errorf("field %q is not delta-mutable", step.field)
	}

	before := map[string]any{step.field: live}
	env := &model.DeltaEnvelope{
		ChangeID:       uuid.NewString(),
		ActorID:        seedActor,
		MadeAt:         time.Now().UTC(),
		JobID:          job.ID,
		Fields:         []string{step.field},
		Before:         before,
		After:          map[string]any{step.field: step.value},
		BeforeChecksum: delta.Checksum(job.ID, before),
		ETag:           delta.FormatETag(job.Version),
	}

	updated, _, err := svc.Apply(ctx, service.ApplyParams{Envelope: env})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// seedRejection records a synthetic stale write directly so the rejection
// listing has data without racing the async rejection path.
func seedRejection(ctx context.Context, repo *data.RejectionRepo, job *model.JobRecord) error {
	before := map[string]any{"notes": "stale note from a lost tab"}
	env := &model.DeltaEnvelope{
		ChangeID:       uuid.NewString(),
		ActorID:        "estimator@shopfloor",
		MadeAt:         time.Now().UTC(),
		JobID:          job.ID,
		Fields:         []string{"notes"},
		Before:         before,
		After:          map[string]any{"notes": "updated note that never landed"},
		BeforeChecksum: delta.Checksum(job.ID, before),
		ETag:           delta.FormatETag(job.Version - 1),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return repo.Record(ctx, &model.JobDeltaRejection{
		JobID:    job.ID,
		ActorID:  env.ActorID,
		ChangeID: env.ChangeID,
		Reason:   model.RejectionReasonPrecondition,
		Envelope: payload,
	})
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
