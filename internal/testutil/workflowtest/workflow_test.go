package workflowtest

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabworks/jobshop/internal/domain/model"
	"github.com/fabworks/jobshop/internal/testutil"
)

// waitTimeout bounds polling for asynchronously recorded rejections.
const waitTimeout = 2 * time.Second

// TestDeltaWorkflow_ApplyRejectUndo drives the full lifecycle over HTTP:
// create a job, apply a conditional patch, watch a stale write get
// rejected and recorded, then undo the applied change.
func TestDeltaWorkflow_ApplyRejectUndo(t *testing.T) {
	h := Setup(t)
	defer h.Close()

	job, etag := h.CreateJob(testutil.NewJobRequest().
		WithName("Workflow bracket run").
		WithOrderNumber(UniqueOrderNumber("WF")).
		WithQuotedTotal(980).
		Build())
	require.Equal(t, int64(1), job.Version)
	require.Equal(t, `W/"job:1"`, etag)

	// Conditional patch with the current token lands.
	env := testutil.NewEnvelope(job).Set("status", "accepted_quote").Build()
	resp := h.PatchDelta(env, etag)
	require.Equal(t, http.StatusOK, resp.Status, "body: %s", resp.Body)

	applied := h.DecodeApplied(resp)
	require.NotNil(t, applied.Job)
	assert.Equal(t, model.JobStatusAcceptedQuote, applied.Job.Status)
	assert.Equal(t, int64(2), applied.Job.Version)
	assert.Equal(t, `W/"job:2"`, resp.ETag)

	// Replaying the same envelope is idempotent, not a conflict.
	replay := h.PatchDelta(env, etag)
	require.Equal(t, http.StatusOK, replay.Status, "body: %s", replay.Body)
	assert.Equal(t, applied.Event.ChangeID, h.DecodeApplied(replay).Event.ChangeID)

	// A stale write with the superseded token is refused and recorded.
	stale := testutil.NewEnvelope(job).
		WithActor("estimator@shopfloor").
		Set("notes", "note from a stale tab").
		Build()
	staleResp := h.PatchDelta(stale, etag)
	require.Equal(t, http.StatusPreconditionFailed, staleResp.Status, "body: %s", staleResp.Body)

	rejections := h.WaitForRejections(job.ID, 1, waitTimeout)
	assert.Equal(t, model.RejectionReasonPrecondition, rejections[0].Reason)
	assert.Equal(t, "estimator@shopfloor", rejections[0].ActorID)

	// Undo the applied change; a compensating event restores the status.
	undoResp := h.Undo(job.ID, &model.UndoRequest{ChangeID: applied.Event.ChangeID})
	require.Equal(t, http.StatusOK, undoResp.Status, "body: %s", undoResp.Body)

	undone := h.DecodeApplied(undoResp)
	require.NotNil(t, undone.Event.Compensates)
	assert.Equal(t, applied.Event.ChangeID, *undone.Event.Compensates)

	current, _ := h.GetJob(job.ID)
	assert.Equal(t, model.JobStatusQuoting, current.Status)
	assert.Equal(t, int64(3), current.Version)

	events := h.ListEvents(job.ID)
	require.Len(t, events, 2)
	assert.Nil(t, events[0].Compensates)
	assert.NotNil(t, events[1].Compensates)
}

// TestDeltaWorkflow_ChecksumMismatch forges an envelope whose before values
// disagree with the live row while the token is current.
func TestDeltaWorkflow_ChecksumMismatch(t *testing.T) {
	h := Setup(t)
	defer h.Close()

	job, etag := h.CreateJob(testutil.NewJobRequest().
		WithName("Checksum probe").
		WithOrderNumber(UniqueOrderNumber("WF")).
		Build())

	env := testutil.NewEnvelope(job).
		SetWithBefore("notes", "value the client never saw", "new note").
		Build()
	resp := h.PatchDelta(env, etag)
	require.Equal(t, http.StatusPreconditionFailed, resp.Status, "body: %s", resp.Body)

	var body struct {
		Error            string   `json:"error"`
		MismatchedFields []string `json:"mismatched_fields"`
	}
	require.NoError(t, resp.Decode(&body))
	assert.Equal(t, "checksum_mismatch", body.Error)

	rejections := h.WaitForRejections(job.ID, 1, waitTimeout)
	assert.Equal(t, model.RejectionReasonChecksum, rejections[0].Reason)

	// The live row is untouched.
	current, currentETag := h.GetJob(job.ID)
	assert.Equal(t, int64(1), current.Version)
	assert.Equal(t, etag, currentETag)
}

// TestDeltaWorkflow_UndoGuard verifies the newer-deltas guard and its
// force override.
func TestDeltaWorkflow_UndoGuard(t *testing.T) {
	h := Setup(t)
	defer h.Close()

	job, etag := h.CreateJob(testutil.NewJobRequest().
		WithName("Undo guard").
		WithOrderNumber(UniqueOrderNumber("WF")).
		Build())

	first := testutil.NewEnvelope(job).Set("status", "accepted_quote").Build()
	firstResp := h.PatchDelta(first, etag)
	require.Equal(t, http.StatusOK, firstResp.Status, "body: %s", firstResp.Body)
	firstApplied := h.DecodeApplied(firstResp)

	updated := firstApplied.Job
	second := testutil.NewEnvelope(updated).Set("contact", "m.reyes@acmefab.example").Build()
	secondResp := h.PatchDelta(second, "")
	require.Equal(t, http.StatusOK, secondResp.Status, "body: %s", secondResp.Body)

	// A newer active delta blocks the undo.
	blocked := h.Undo(job.ID, &model.UndoRequest{ChangeID: firstApplied.Event.ChangeID})
	require.Equal(t, http.StatusConflict, blocked.Status, "body: %s", blocked.Body)

	// Force pushes through.
	forced := h.Undo(job.ID, &model.UndoRequest{
		ChangeID: firstApplied.Event.ChangeID,
		Force:    true,
	})
	require.Equal(t, http.StatusOK, forced.Status, "body: %s", forced.Body)

	current, _ := h.GetJob(job.ID)
	assert.Equal(t, model.JobStatusQuoting, current.Status)
}
