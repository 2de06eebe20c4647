package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/data/pgxutil"
	"github.com/fabworks/jobshop/internal/domain/model"
)

// SQL applying an accepted delta. The version bump and field writes are one
// statement so a concurrent writer can never observe a torn update.
const applyDeltaUpdateSQL = `
  UPDATE jobs
  SET
    name = $2,
    description = $3,
    order_number = $4,
    status = $5,
    notes = $6,
    contact = $7,
    quoted_total = $8,
    version = version + 1,
    updated_at = $9
  WHERE id = $1
  RETURNING ` + jobColumns

const insertEventSQL = `
  INSERT INTO job_events
    (change_id, job_id, actor_id, schema_version, delta_fields, delta_before, delta_after, delta_checksum, compensates, created_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
  RETURNING id, created_at`

// ApplyDelta applies a validated envelope atomically: the job row is locked,
// params.Validate runs against live state, then the After values are written
// with a version bump and the JobEvent is inserted in the same transaction.
// Validation failures roll back with the job untouched.
func (r *JobRepo) ApplyDelta(
	ctx context.Context,
	params core.ApplyDeltaParams,
) (*model.JobRecord, *model.JobEvent, error) {
	env := params.Envelope
	if env == nil {
		return nil, nil, errors.New("delta envelope is required")
	}
	if params.Validate == nil {
		return nil, nil, errors.New("validate callback is required")
	}

	var (
		updated *model.JobRecord
		event   *model.JobEvent
	)
	txErr := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		live, err := lockJob(ctx, tx, env.JobID)
		if err != nil {
			return err
		}

		if validateErr := params.Validate(live); validateErr != nil {
			return validateErr
		}

		// Apply After onto a copy first so a bad value leaves nothing
		// half-written even before the rollback.
		next := *live
		for _, field := range env.SortedFields() {
			if setErr := next.SetDeltaValue(field, env.After[field]); setErr != nil {
				return fmt.Errorf("apply field: %w", setErr)
			}
		}

		now := r.touchedAt()
		row := tx.QueryRow(ctx, applyDeltaUpdateSQL,
			next.ID,
			next.Name,
			next.Description,
			next.OrderNumber,
			next.Status,
			next.Notes,
			next.Contact,
			next.QuotedTotal,
			now,
		)
		updated, err = scanJobFromRow(row)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}

		event, err = insertEvent(ctx, tx, insertEventParams{
			env:         env,
			compensates: params.Compensates,
			appliedAt:   now,
		})
		return err
	})
	if txErr != nil {
		return nil, nil, txErr
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "delta applied",
			"job_id", updated.ID,
			"change_id", env.ChangeID,
			"fields", env.SortedFields(),
			"version", updated.Version,
		)
	}
	return updated, event, nil
}

// lockJob loads the job row under FOR UPDATE so the validate-then-write
// sequence is race-free for the transaction's lifetime.
func lockJob(ctx context.Context, tx pgx.Tx, jobID string) (*model.JobRecord, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("lock job: %w", err)
	}
	return job, nil
}

type insertEventParams struct {
	env         *model.DeltaEnvelope
	compensates *string
	// appliedAt is the server clock at apply time. Event ordering (and the
	// undo guard) keys off this, never the client-claimed made_at.
	appliedAt time.Time
}

func insertEvent(ctx context.Context, tx pgx.Tx, p insertEventParams) (*model.JobEvent, error) {
	before, err := json.Marshal(p.env.Before)
	if err != nil {
		return nil, fmt.Errorf("marshal delta_before: %w", err)
	}
	after, err := json.Marshal(p.env.After)
	if err != nil {
		return nil, fmt.Errorf("marshal delta_after: %w", err)
	}

	event := &model.JobEvent{
		ChangeID:      p.env.ChangeID,
		JobID:         p.env.JobID,
		ActorID:       p.env.ActorID,
		SchemaVersion: model.EventSchemaVersion,
		Fields:        p.env.SortedFields(),
		Before:        before,
		After:         after,
		Checksum:      p.env.BeforeChecksum,
		Compensates:   p.compensates,
	}

	row := tx.QueryRow(ctx, insertEventSQL,
		event.ChangeID,
		event.JobID,
		event.ActorID,
		event.SchemaVersion,
		event.Fields,
		event.Before,
		event.After,
		event.Checksum,
		event.Compensates,
		p.appliedAt,
	)
	if err := row.Scan(&event.ID, &event.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert job event: %w", err)
	}
	return event, nil
}
