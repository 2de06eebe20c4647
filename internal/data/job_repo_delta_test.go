package data

import (
	"context"
	"database/sql"
	"errors"
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

// applyParams wraps an envelope in ApplyDeltaParams with a pass-through
// validate callback, the shape most tests want.
func applyParams(env *model.DeltaEnvelope, compensates *string) core.ApplyDeltaParams {
	return core.ApplyDeltaParams{
		Envelope:    env,
		Compensates: compensates,
		Validate:    func(*model.JobRecord) error { return nil },
	}
}

func pageAll() core.Page {
	return core.Page{Limit: 500}
}

func TestJobRepo_ApplyDelta(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		env := testutil.NewEnvelope(job).
			Set("status", string(model.JobStatusAcceptedQuote)).
			Set("notes", "expedite per customer call").
			Build()

		var sawLive *model.JobRecord
		updated, event, err := repo.ApplyDelta(ctx, core.ApplyDeltaParams{
			Envelope: env,
			Validate: func(live *model.JobRecord) error {
				sawLive = live
				return nil
			},
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.NotNil(t, event)

		// Validate ran against the pre-apply row.
		require.NotNil(t, sawLive)
		assert.EqualValues(t, 1, sawLive.Version)
		assert.Equal(t, model.JobStatusQuoting, sawLive.Status)

		assert.EqualValues(t, 2, updated.Version)
		assert.Equal(t, model.JobStatusAcceptedQuote, updated.Status)
		require.NotNil(t, updated.Notes)
		assert.Equal(t, "expedite per customer call", *updated.Notes)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

		assert.NotEmpty(t, event.ID)
		assert.Equal(t, env.ChangeID, event.ChangeID)
		assert.Equal(t, job.ID, event.JobID)
		assert.Equal(t, env.ActorID, event.ActorID)
		assert.Equal(t, model.EventSchemaVersion, event.SchemaVersion)
		assert.Equal(t, []string{"notes", "status"}, event.Fields)
		assert.Equal(t, env.BeforeChecksum, event.Checksum)
		assert.Nil(t, event.Compensates)
		assert.True(t, event.CreatedAt.Equal(updated.UpdatedAt))

		before, err := event.DecodeBefore()
		require.NoError(t, err)
		assert.Equal(t, string(model.JobStatusQuoting), before["status"])
		after, err := event.DecodeAfter()
		require.NoError(t, err)
		assert.Equal(t, "expedite per customer call", after["notes"])
	})
}

func TestJobRepo_ApplyDelta_ValidateErrorRollsBack(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		env := testutil.NewEnvelope(job).Set("notes", "should never land").Build()
		errStale := errors.New("stale version token")

		_, _, err = repo.ApplyDelta(ctx, core.ApplyDeltaParams{
			Envelope: env,
			Validate: func(*model.JobRecord) error { return errStale },
		})
		assert.ErrorIs(t, err, errStale)

		live, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, live.Version)
		assert.Nil(t, live.Notes)
		assert.True(t, live.UpdatedAt.Equal(job.UpdatedAt))

		events, err := NewEventRepo(db).ListByJob(ctx, job.ID, pageAll())
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestJobRepo_ApplyDelta_BadFieldValueRollsBack(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		env := testutil.NewEnvelope(job).Set("quoted_total", "not a number").Build()

		_, _, err = repo.ApplyDelta(ctx, applyParams(env, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apply field")

		live, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, live.Version)
		assert.Nil(t, live.QuotedTotal)
	})
}

func TestJobRepo_ApplyDelta_JobNotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		ghost := &model.JobRecord{ID: uuid.NewString(), Version: 1}
		env := testutil.NewEnvelope(ghost).Set("notes", "nobody home").Build()

		_, _, err := repo.ApplyDelta(context.Background(), applyParams(env, nil))
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_ApplyDelta_DuplicateChangeID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		env := testutil.NewEnvelope(job).Set("notes", "first write").Build()
		updated, _, err := repo.ApplyDelta(ctx, applyParams(env, nil))
		require.NoError(t, err)

		replay := testutil.NewEnvelope(updated).Set("notes", "second write").Build()
		replay.ChangeID = env.ChangeID

		_, _, err = repo.ApplyDelta(ctx, applyParams(replay, nil))
		require.Error(t, err)

		// The unique change_id violation rolled the whole transaction back.
		live, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, live.Version)
		require.NotNil(t, live.Notes)
		assert.Equal(t, "first write", *live.Notes)
	})
}

func TestJobRepo_ApplyDelta_ConcurrentWritersSameSnapshot(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		// Both writers read the same version-1 snapshot before either commits.
		envA := testutil.NewEnvelope(job).Set("status", string(model.JobStatusAcceptedQuote)).Build()
		envB := testutil.NewEnvelope(job).Set("status", string(model.JobStatusOnHold)).Build()

		errStale := errors.New("version moved underneath writer")
		apply := func(env *model.DeltaEnvelope) func() error {
			return func() error {
				_, _, aerr := repo.ApplyDelta(ctx, core.ApplyDeltaParams{
					Envelope: env,
					Validate: func(live *model.JobRecord) error {
						if live.Version != job.Version {
							return errStale
						}
						return nil
					},
				})
				return aerr
			}
		}

		runner := testutil.NewConcurrentTestRunner(t, db)
		errs := runner.RunConcurrent(apply(envA), apply(envB))
		require.Len(t, errs, 2)

		var winner *model.DeltaEnvelope
		switch {
		case errs[0] == nil && errors.Is(errs[1], errStale):
			winner = envA
		case errs[1] == nil && errors.Is(errs[0], errStale):
			winner = envB
		default:
			t.Fatalf("expected exactly one winner, got errors %v and %v", errs[0], errs[1])
		}

		live, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, live.Version)
		assert.Equal(t, winner.After["status"], string(live.Status))

		states := testutil.InspectJobStates(t, db)
		require.Len(t, states, 1)
		assert.EqualValues(t, 2, states[0].Version)
		assert.Equal(t, winner.After["status"], states[0].Status)

		events, err := NewEventRepo(db).ListByJob(ctx, job.ID, pageAll())
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, winner.ChangeID, events[0].ChangeID)
	})
}

func TestJobRepo_ApplyDelta_ConcurrentDistinctJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		jobA, err := repo.Create(ctx, testutil.NewJobRequest().WithName("bracket run A").Build())
		require.NoError(t, err)
		jobB, err := repo.Create(ctx, testutil.NewJobRequest().WithName("bracket run B").Build())
		require.NoError(t, err)

		apply := func(job *model.JobRecord) func() error {
			env := testutil.NewEnvelope(job).Set("status", string(model.JobStatusAcceptedQuote)).Build()
			return func() error {
				_, _, aerr := repo.ApplyDelta(ctx, applyParams(env, nil))
				return aerr
			}
		}

		// Row locks are per job, so neither writer should see the other.
		runner := testutil.NewConcurrentTestRunner(t, db)
		runner.AssertNoErrors(runner.RunConcurrent(apply(jobA), apply(jobB)))

		for _, id := range []string{jobA.ID, jobB.ID} {
			live, gerr := repo.GetByID(ctx, id)
			require.NoError(t, gerr)
			assert.EqualValues(t, 2, live.Version)
			assert.Equal(t, model.JobStatusAcceptedQuote, live.Status)
		}
	})
}

func TestJobRepo_ApplyDelta_CompensatingEvent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		forward := testutil.NewEnvelope(job).
			Set("status", string(model.JobStatusAcceptedQuote)).
			Build()
		updated, _, err := repo.ApplyDelta(ctx, applyParams(forward, nil))
		require.NoError(t, err)
		require.EqualValues(t, 2, updated.Version)

		inverse := forward.Inverse(uuid.NewString(), "undo@jobshop", time.Now().UTC())
		inverse.BeforeChecksum = delta.Checksum(job.ID, inverse.Before)

		reverted, event, err := repo.ApplyDelta(ctx, applyParams(inverse, &forward.ChangeID))
		require.NoError(t, err)

		assert.EqualValues(t, 3, reverted.Version)
		assert.Equal(t, model.JobStatusQuoting, reverted.Status)

		require.NotNil(t, event.Compensates)
		assert.Equal(t, forward.ChangeID, *event.Compensates)
		assert.True(t, event.IsCompensating())
	})
}

func TestJobRepo_ApplyDelta_MissingParams(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		_, _, err := repo.ApplyDelta(ctx, core.ApplyDeltaParams{
			Validate: func(*model.JobRecord) error { return nil },
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "envelope is required")

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		env := testutil.NewEnvelope(job).Set("notes", "no validator").Build()

		_, _, err = repo.ApplyDelta(ctx, core.ApplyDeltaParams{Envelope: env})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate callback is required")
	})
}
