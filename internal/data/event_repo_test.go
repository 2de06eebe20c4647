package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
	"github.com/fabworks/jobshop/internal/testutil"
)

// applyNotes applies a single-field notes delta and returns the refreshed
// job plus the recorded event.
func applyNotes(t *testing.T, repo *JobRepo, job *model.JobRecord, notes string) (*model.JobRecord, *model.JobEvent) {
	t.Helper()
	env := testutil.NewEnvelope(job).Set("notes", notes).Build()
	updated, event, err := repo.ApplyDelta(context.Background(), applyParams(env, nil))
	require.NoError(t, err)
	return updated, event
}

func TestEventRepo_GetByChangeID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		jobs := NewJobRepo(db, RepoConfig{})
		events := NewEventRepo(db)
		ctx := context.Background()

		job, err := jobs.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, applied := applyNotes(t, jobs, job, "weld spec confirmed")

		got, err := events.GetByChangeID(ctx, applied.ChangeID)
		require.NoError(t, err)
		assert.Equal(t, applied.ID, got.ID)
		assert.Equal(t, applied.ChangeID, got.ChangeID)
		assert.Equal(t, job.ID, got.JobID)
		assert.Equal(t, []string{"notes"}, got.Fields)
		assert.Equal(t, applied.Checksum, got.Checksum)
		assert.True(t, got.CreatedAt.Equal(applied.CreatedAt))

		after, err := got.DecodeAfter()
		require.NoError(t, err)
		assert.Equal(t, "weld spec confirmed", after["notes"])

		_, err = events.GetByChangeID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestEventRepo_ListByJob(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(testutil.TestTime())
		jobs := NewJobRepo(db, RepoConfig{TimeProvider: clock})
		events := NewEventRepo(db)
		ctx := context.Background()

		job, err := jobs.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		var changeIDs []string
		for _, notes := range []string{"first", "second", "third"} {
			clock.Advance(time.Second)
			job2, event := applyNotes(t, jobs, job, notes)
			job = job2
			changeIDs = append(changeIDs, event.ChangeID)
		}

		t.Run("oldest first", func(t *testing.T) {
			got, err := events.ListByJob(ctx, job.ID, pageAll())
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, event := range got {
				assert.Equal(t, changeIDs[i], event.ChangeID)
			}
		})

		t.Run("limit and offset", func(t *testing.T) {
			got, err := events.ListByJob(ctx, job.ID, core.Page{Limit: 2})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, changeIDs[0], got[0].ChangeID)
			assert.Equal(t, changeIDs[1], got[1].ChangeID)

			got, err = events.ListByJob(ctx, job.ID, core.Page{Limit: 2, Offset: 2})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, changeIDs[2], got[0].ChangeID)
		})

		t.Run("unknown job is empty", func(t *testing.T) {
			got, err := events.ListByJob(ctx, uuid.NewString(), pageAll())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	})
}

func TestEventRepo_HasCompensation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		jobs := NewJobRepo(db, RepoConfig{})
		events := NewEventRepo(db)
		ctx := context.Background()

		job, err := jobs.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		env := testutil.NewEnvelope(job).Set("notes", "to be undone").Build()
		updated, _, err := jobs.ApplyDelta(ctx, applyParams(env, nil))
		require.NoError(t, err)

		undone, err := events.HasCompensation(ctx, env.ChangeID)
		require.NoError(t, err)
		assert.False(t, undone)

		inverse := env.Inverse(uuid.NewString(), "undo@jobshop", time.Now().UTC())
		inverse.BeforeChecksum = delta.Checksum(updated.ID, inverse.Before)
		_, _, err = jobs.ApplyDelta(ctx, applyParams(inverse, &env.ChangeID))
		require.NoError(t, err)

		undone, err = events.HasCompensation(ctx, env.ChangeID)
		require.NoError(t, err)
		assert.True(t, undone)
	})
}

func TestEventRepo_CountNewerActive(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(testutil.TestTime())
		jobs := NewJobRepo(db, RepoConfig{TimeProvider: clock})
		events := NewEventRepo(db)
		ctx := context.Background()

		job, err := jobs.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		clock.Advance(time.Second)
		job, first := applyNotes(t, jobs, job, "first")
		anchor := first.CreatedAt

		clock.Advance(time.Second)
		env := testutil.NewEnvelope(job).Set("notes", "second").Build()
		job, _, err = jobs.ApplyDelta(ctx, applyParams(env, nil))
		require.NoError(t, err)

		// The second change is newer than the anchor and still active.
		count, err := events.CountNewerActive(ctx, job.ID, anchor)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// Undo the second change. That leaves its compensating event as
		// the only active one after the anchor.
		clock.Advance(time.Second)
		inverse := env.Inverse(uuid.NewString(), "undo@jobshop", time.Now().UTC())
		inverse.BeforeChecksum = delta.Checksum(job.ID, inverse.Before)
		_, comp, err := jobs.ApplyDelta(ctx, applyParams(inverse, &env.ChangeID))
		require.NoError(t, err)

		count, err = events.CountNewerActive(ctx, job.ID, anchor)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// Nothing is newer than the compensating event itself.
		count, err = events.CountNewerActive(ctx, job.ID, comp.CreatedAt)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
