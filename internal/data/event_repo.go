package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/data/pgxutil"
	"github.com/fabworks/jobshop/internal/domain/model"
)

// ErrEventNotFound is returned when a change id is unknown.
var ErrEventNotFound = errors.New("job event not found")

// EventRepo provides read access to the append-only job event ledger.
// Events are only ever written inside JobRepo.ApplyDelta.
type EventRepo struct {
	DB *sql.DB
}

// NewEventRepo creates a new EventRepo instance.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{DB: db}
}

const eventColumns = `
  id,
  change_id,
  job_id,
  actor_id,
  schema_version,
  delta_fields,
  delta_before,
  delta_after,
  delta_checksum,
  compensates,
  created_at
`

func scanEvent(row pgx.Row) (*model.JobEvent, error) {
	event := &model.JobEvent{}
	if err := row.Scan(
		&event.ID,
		&event.ChangeID,
		&event.JobID,
		&event.ActorID,
		&event.SchemaVersion,
		&event.Fields,
		&event.Before,
		&event.After,
		&event.Checksum,
		&event.Compensates,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	return event, nil
}

// GetByChangeID retrieves the event recorded for a change id.
func (r *EventRepo) GetByChangeID(ctx context.Context, changeID string) (*model.JobEvent, error) {
	var event *model.JobEvent
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM job_events WHERE change_id = $1`, changeID)
		var scanErr error
		event, scanErr = scanEvent(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return ErrEventNotFound
			}
			return fmt.Errorf("get event: %w", scanErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListByJob returns a job's events ordered oldest first, the order a
// timeline UI replays them in.
func (r *EventRepo) ListByJob(
	ctx context.Context,
	jobID string,
	page core.Page,
) ([]*model.JobEvent, error) {
	limit := page.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	var events []*model.JobEvent
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx,
			`SELECT `+eventColumns+` FROM job_events
			 WHERE job_id = $1
			 ORDER BY created_at ASC, id ASC
			 LIMIT $2 OFFSET $3`, jobID, limit, offset)
		if qErr != nil {
			return fmt.Errorf("list events: %w", qErr)
		}
		defer rows.Close()

		for rows.Next() {
			event, scanErr := scanEvent(rows)
			if scanErr != nil {
				return fmt.Errorf("scan event: %w", scanErr)
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// HasCompensation reports whether a compensating event already references
// the given change id, i.e. the change has been undone.
func (r *EventRepo) HasCompensation(ctx context.Context, changeID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM job_events WHERE compensates = $1)`, changeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check compensation: %w", err)
	}
	return exists, nil
}

// CountNewerActive counts events on a job created strictly after the given
// instant that have not themselves been compensated by a later undo. A
// nonzero count blocks an un-forced undo.
func (r *EventRepo) CountNewerActive(
	ctx context.Context,
	jobID string,
	after time.Time,
) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT count(*)
		FROM job_events e
		WHERE e.job_id = $1
		  AND e.created_at > $2
		  AND NOT EXISTS (
		    SELECT 1 FROM job_events c WHERE c.compensates = e.change_id
		  )`, jobID, after).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count newer events: %w", err)
	}
	return count, nil
}
