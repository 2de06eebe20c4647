// Package service implements the business logic between the HTTP layer and
// the repositories: job lifecycle on one side, the delta-validated write
// path on the other.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/data"
	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
	apperrors "github.com/fabworks/jobshop/internal/errors"
)

// isNotFoundSentinel matches the data layer's not-found sentinels.
func isNotFoundSentinel(err error) bool {
	return errors.Is(err, data.ErrJobNotFound) || errors.Is(err, data.ErrEventNotFound)
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Jobs     core.JobRepository // Required: job repository
	Versions core.VersionCache  // Optional: ETag fast-path cache
	Logger   *slog.Logger       // Optional: structured logger
}

// JobService handles job lifecycle outside the delta path: create, read,
// list, delete. Delta-managed field mutations belong to DeltaService.
type JobService struct {
	jobs     core.JobRepository
	versions core.VersionCache
	logger   *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Jobs == nil {
		return nil, fmt.Errorf("JobRepository is required")
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "job_service")
	}

	return &JobService{
		jobs:     opts.Jobs,
		versions: opts.Versions,
		logger:   logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// Create validates and persists a new job. New jobs start at version 1.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.JobRecord, error) {
	if req == nil {
		return nil, apperrors.Validation("create request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job")
	}

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, apperrors.Conflict(
				fmt.Sprintf("order number %q is already taken", derefString(req.OrderNumber)))
		}
		return nil, mapped
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job created",
			"job_id", job.ID,
			"tenant_id", job.TenantID,
			"status", job.Status,
		)
	}
	return job, nil
}

// Get returns a job by id together with its current ETag.
func (s *JobService) Get(ctx context.Context, id string) (*model.JobRecord, string, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if isNotFoundSentinel(err) {
			return nil, "", apperrors.NotFoundf("job %s not found", id)
		}
		return nil, "", apperrors.MapDBError(err)
	}
	return job, delta.FormatETag(job.Version), nil
}

// List returns jobs matching the given filters, newest first.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobRecord, error) {
	jobs, err := s.jobs.List(ctx, opts)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return jobs, nil
}

// Delete removes an archived job. Jobs in any other status are refused so
// the event ledger of active work stays intact.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if err := s.jobs.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, data.ErrJobNotFound):
			return apperrors.NotFoundf("job %s not found", id)
		case errors.Is(err, data.ErrJobNotDeletable):
			return apperrors.Conflict("only archived jobs can be deleted")
		}
		return apperrors.MapDBError(err)
	}

	if s.versions != nil {
		if err := s.versions.Invalidate(ctx, id); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "version cache invalidation failed", "job_id", id, "error", err)
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job deleted", "job_id", id)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
