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

// Advisory lock namespace for the rejection retention sweeper, so
// concurrent instances never prune the same batch.
const (
	advisoryLockSweeperMajor = 2000
	advisoryLockSweeperPrune = 1
)

// RejectionRepo persists delta-rejection telemetry. Writes are append-only;
// the only delete path is retention pruning.
type RejectionRepo struct {
	DB *sql.DB
}

// NewRejectionRepo creates a new RejectionRepo instance.
func NewRejectionRepo(db *sql.DB) *RejectionRepo {
	return &RejectionRepo{DB: db}
}

// Record inserts a rejection row.
func (r *RejectionRepo) Record(ctx context.Context, rejection *model.JobDeltaRejection) error {
	if rejection == nil {
		return errors.New("rejection is required")
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO job_delta_rejections
			  (job_id, actor_id, change_id, reason, mismatched_fields, envelope, expected_checksum, received_checksum)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rejection.JobID,
			rejection.ActorID,
			rejection.ChangeID,
			rejection.Reason,
			rejection.MismatchedFields,
			rejection.Envelope,
			rejection.ExpectedChecksum,
			rejection.ReceivedChecksum,
		)
		if err != nil {
			return fmt.Errorf("insert rejection: %w", err)
		}
		return nil
	})
}

// ListByJob returns a job's rejections, newest first.
func (r *RejectionRepo) ListByJob(
	ctx context.Context,
	jobID string,
	page core.Page,
) ([]*model.JobDeltaRejection, error) {
	limit := page.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	var rejections []*model.JobDeltaRejection
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT id, job_id, actor_id, change_id, reason, mismatched_fields,
			       envelope, expected_checksum, received_checksum, created_at
			FROM job_delta_rejections
			WHERE job_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3`, jobID, limit, offset)
		if qErr != nil {
			return fmt.Errorf("list rejections: %w", qErr)
		}
		defer rows.Close()

		for rows.Next() {
			rej := &model.JobDeltaRejection{}
			if scanErr := rows.Scan(
				&rej.ID,
				&rej.JobID,
				&rej.ActorID,
				&rej.ChangeID,
				&rej.Reason,
				&rej.MismatchedFields,
				&rej.Envelope,
				&rej.ExpectedChecksum,
				&rej.ReceivedChecksum,
				&rej.CreatedAt,
			); scanErr != nil {
				return fmt.Errorf("scan rejection: %w", scanErr)
			}
			rejections = append(rejections, rej)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return rejections, nil
}

// PruneOlderThan deletes rejections created before cutoff, at most batchSize
// rows per call to keep lock times and I/O bounded. An advisory lock makes
// concurrent sweepers harmless. Returns the number of rows deleted.
func (r *RejectionRepo) PruneOlderThan(
	ctx context.Context,
	cutoff time.Time,
	batchSize int,
) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var deleted int64
	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		var locked bool
		if err := tx.QueryRowContext(ctx,
			"SELECT pg_try_advisory_xact_lock($1, $2)",
			advisoryLockSweeperMajor, advisoryLockSweeperPrune).Scan(&locked); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !locked {
			deleted = 0
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM job_delta_rejections
			WHERE id IN (
			  SELECT id FROM job_delta_rejections
			  WHERE created_at < $1
			  ORDER BY created_at ASC
			  LIMIT $2
			)`, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("prune rejections: %w", err)
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("prune rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
