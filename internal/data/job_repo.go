package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fabworks/jobshop/internal/domain/model"
)

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotDeletable is returned when attempting to delete a job that is not archived.
	ErrJobNotDeletable = errors.New("job cannot be deleted (must be archived)")
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job records.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  tenant_id,
  name,
  description,
  order_number,
  status,
  notes,
  contact,
  quoted_total,
  version,
  created_at,
  updated_at
`

// jobRowScanner abstracts *sql.Row and *sql.Rows for scanning.
type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner jobRowScanner) (*model.JobRecord, error) {
	job := &model.JobRecord{}
	var (
		description sql.NullString
		orderNumber sql.NullString
		notes       sql.NullString
		contact     sql.NullString
		quotedTotal sql.NullFloat64
	)
	if err := scanner.Scan(
		&job.ID,
		&job.TenantID,
		&job.Name,
		&description,
		&orderNumber,
		&job.Status,
		&notes,
		&contact,
		&quotedTotal,
		&job.Version,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Description = cloneNullableString(description)
	job.OrderNumber = cloneNullableString(orderNumber)
	job.Notes = cloneNullableString(notes)
	job.Contact = cloneNullableString(contact)
	if quotedTotal.Valid {
		v := quotedTotal.Float64
		job.QuotedTotal = &v
	}
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create inserts a new job record with version 1.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.JobRecord, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO jobs (tenant_id, name, description, order_number, notes, contact, quoted_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+jobColumns,
		req.TenantID,
		strings.TrimSpace(req.Name),
		req.Description,
		req.OrderNumber,
		req.Notes,
		req.Contact,
		req.QuotedTotal,
		now,
	)

	job, err := scanJobFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job by its id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.JobRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

const defaultListLimit = 50

// List returns jobs matching the given filters, newest first.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobRecord, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		conds []string
		args  []any
	)
	if opts.TenantID != "" {
		args = append(args, opts.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, fmt.Errorf("invalid status filter %q", opts.Status)
		}
		args = append(args, opts.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var jobs []*model.JobRecord
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes an archived job (and, via cascade, its events). Jobs in
// any other status are refused.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND status = $2`, id, model.JobStatusArchived)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from not-deletable for the caller.
		var exists bool
		if qErr := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); qErr != nil {
			return fmt.Errorf("check job existence: %w", qErr)
		}
		if exists {
			return ErrJobNotDeletable
		}
		return ErrJobNotFound
	}
	return nil
}

// touchedAt exposes the repo's clock for the delta apply path.
func (r *JobRepo) touchedAt() time.Time {
	return r.timeProvider.Now().UTC()
}
