package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
	apperrors "github.com/fabworks/jobshop/internal/errors"
	"github.com/fabworks/jobshop/internal/observability/metrics"
	"github.com/fabworks/jobshop/internal/observability/statsd"
)

// DeltaServiceOptions groups dependencies for DeltaService.
type DeltaServiceOptions struct {
	Jobs       core.JobRepository       // Required: job repository
	Events     core.EventRepository     // Required: event ledger
	Rejections core.RejectionRepository // Optional: rejection telemetry
	Versions   core.VersionCache        // Optional: ETag fast-path cache
	Logger     *slog.Logger             // Optional: structured logger
	Metrics    statsd.Sink              // Optional: metric sink
	Clock      func() time.Time         // Optional: override for tests
}

// DeltaService implements the delta-validated write path: the ETag gate,
// checksum and literal validation, the event ledger, undo, and rejection
// telemetry. It is the only component that mutates delta-managed job fields.
type DeltaService struct {
	jobs       core.JobRepository
	events     core.EventRepository
	rejections core.RejectionRepository
	versions   core.VersionCache
	logger     *slog.Logger
	metrics    statsd.Sink
	clock      func() time.Time
}

// NewDeltaService constructs a new DeltaService.
func NewDeltaService(opts DeltaServiceOptions) (*DeltaService, error) {
	if opts.Jobs == nil {
		return nil, fmt.Errorf("JobRepository is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("EventRepository is required")
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "delta_service")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &DeltaService{
		jobs:       opts.Jobs,
		events:     opts.Events,
		rejections: opts.Rejections,
		versions:   opts.Versions,
		logger:     logger,
		metrics:    opts.Metrics,
		clock:      clock,
	}, nil
}

// MustNewDeltaService constructs a new DeltaService and panics on error.
func MustNewDeltaService(opts DeltaServiceOptions) *DeltaService {
	svc, err := NewDeltaService(opts)
	if err != nil {
		panic(err)
	}
	return svc
}

// ApplyParams groups the arguments for Apply to keep parameter count ≤3.
type ApplyParams struct {
	Envelope *model.DeltaEnvelope
	// IfMatch is the If-Match header token. When both it and the
	// envelope's etag field are present they must agree.
	IfMatch string
}

// Apply runs an envelope through the full validated write path. On success
// the job's After values are live, the version token is bumped, and the
// returned JobEvent records the accepted delta. Conflicts are surfaced as
// structured AppErrors and recorded as rejection telemetry.
func (s *DeltaService) Apply(
	ctx context.Context,
	params ApplyParams,
) (*model.JobRecord, *model.JobEvent, error) {
	started := s.clock()
	env := params.Envelope
	if env == nil {
		return nil, nil, apperrors.Validation("delta envelope is required")
	}

	if err := env.Validate(); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid delta envelope")
	}

	expectedVersion, err := resolveETag(params.IfMatch, env.ETag)
	if err != nil {
		return nil, nil, err
	}

	// Idempotent replay: the same change_id with the same content returns
	// the original event rather than re-applying.
	if existing, replayErr := s.checkReplay(ctx, env); replayErr != nil {
		return nil, nil, replayErr
	} else if existing != nil {
		job, getErr := s.jobs.GetByID(ctx, env.JobID)
		if getErr != nil {
			return nil, nil, apperrors.MapDBError(getErr)
		}
		return job, existing, nil
	}

	// Fast path: a cached version strictly newer than the caller's token
	// cannot possibly pass the in-transaction gate.
	if s.versions != nil {
		if cached, ok, cacheErr := s.versions.GetVersion(ctx, env.JobID); cacheErr == nil && ok && cached > expectedVersion {
			rejErr := apperrors.Precondition(
				fmt.Sprintf("job version is %d, token names %d", cached, expectedVersion))
			s.recordRejection(ctx, env, rejErr)
			s.emit("apply", started, rejErr)
			return nil, nil, rejErr
		}
	}

	job, event, applyErr := s.jobs.ApplyDelta(ctx, core.ApplyDeltaParams{
		Envelope: env,
		Validate: func(live *model.JobRecord) error {
			if live.Version != expectedVersion {
				return apperrors.Precondition(
					fmt.Sprintf("job version is %d, token names %d", live.Version, expectedVersion))
			}
			return validateAgainstLive(env, live)
		},
	})
	if applyErr != nil {
		mapped := s.mapApplyError(ctx, env, applyErr)
		if apperrors.IsStale(mapped) {
			s.recordRejection(ctx, env, mapped)
		}
		s.emit("apply", started, mapped)
		return nil, nil, mapped
	}

	s.cacheVersion(ctx, job)
	s.emit("apply", started, nil)
	return job, event, nil
}

// resolveETag reconciles the If-Match header with the envelope's etag
// field and parses the version it names.
func resolveETag(ifMatch, envelopeETag string) (int64, error) {
	token := ifMatch
	switch {
	case token == "" && envelopeETag == "":
		return 0, apperrors.Validation("an If-Match header or envelope etag is required")
	case token == "":
		token = envelopeETag
	case envelopeETag != "" && envelopeETag != token:
		return 0, apperrors.Validation("If-Match header and envelope etag disagree")
	}

	version, err := delta.ParseETag(token)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid etag")
	}
	return version, nil
}

// checkReplay returns the stored event when env is an exact replay of an
// already-applied change, an error when the change_id is being reused for
// different content, and (nil, nil) for new changes.
func (s *DeltaService) checkReplay(
	ctx context.Context,
	env *model.DeltaEnvelope,
) (*model.JobEvent, error) {
	existing, err := s.events.GetByChangeID(ctx, env.ChangeID)
	if err != nil {
		if apperrors.IsNotFound(apperrors.MapDBError(err)) || isNotFoundSentinel(err) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(err)
	}
	if existing.JobID == env.JobID && existing.Checksum == env.BeforeChecksum && replayMatches(existing, env) {
		return existing, nil
	}
	return nil, apperrors.Conflict("change_id already used for a different delta")
}

// replayMatches reports whether env carries exactly the content the stored
// event recorded. The before side is already covered by the checksum; the
// field set and after-values must match too, or an envelope reusing a
// change_id with new after-values would be swallowed as a replay.
func replayMatches(existing *model.JobEvent, env *model.DeltaEnvelope) bool {
	if !slices.Equal(existing.Fields, env.SortedFields()) {
		return false
	}
	storedAfter, err := existing.DecodeAfter()
	if err != nil {
		return false
	}
	for _, field := range existing.Fields {
		if delta.NormalizeValue(storedAfter[field]) != delta.NormalizeValue(env.After[field]) {
			return false
		}
	}
	return true
}

// validateAgainstLive is the delta validator proper: recompute the checksum
// over live values for exactly the envelope's fields, then compare each
// before-value literally. The literal pass is defense in depth against
// canonicalization bugs and hash collisions.
func validateAgainstLive(env *model.DeltaEnvelope, live *model.JobRecord) error {
	liveValues := make(map[string]any, len(env.Fields))
	for _, field := range env.Fields {
		value, ok := live.DeltaValue(field)
		if !ok {
			return apperrors.Validationf("field %q is not delta-mutable", field)
		}
		liveValues[field] = value
	}

	mismatched := diffFields(env, liveValues)

	liveChecksum := delta.Checksum(env.JobID, liveValues)
	if liveChecksum != env.BeforeChecksum {
		return apperrors.ChecksumMismatch(liveChecksum, mismatched)
	}
	if len(mismatched) > 0 {
		return apperrors.FieldMismatch(mismatched)
	}
	return nil
}

// diffFields names the fields whose claimed before-value differs from the
// live value, in canonical order. Values are compared raw rather than
// through the canonicalizer, so divergence that normalizes away (trailing
// whitespace, unicode form) still surfaces as a mismatch.
func diffFields(env *model.DeltaEnvelope, liveValues map[string]any) []string {
	var mismatched []string
	for _, field := range env.SortedFields() {
		if !literalEqual(env.Before[field], liveValues[field]) {
			mismatched = append(mismatched, field)
		}
	}
	return mismatched
}

// literalEqual compares a claimed before-value against the live value with
// type-aware equality over the JSON value domain (string, number, bool,
// null). Numbers compare across Go numeric types; everything else must
// match exactly.
func literalEqual(claimed, live any) bool {
	if claimed == nil || live == nil {
		return claimed == nil && live == nil
	}
	if cf, ok := asFloat64(claimed); ok {
		lf, lok := asFloat64(live)
		return lok && cf == lf
	}
	switch c := claimed.(type) {
	case string:
		l, ok := live.(string)
		return ok && c == l
	case bool:
		l, ok := live.(bool)
		return ok && c == l
	default:
		return reflect.DeepEqual(claimed, live)
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (s *DeltaService) mapApplyError(ctx context.Context, env *model.DeltaEnvelope, err error) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	if isNotFoundSentinel(err) {
		return apperrors.NotFoundf("job %s not found", env.JobID)
	}
	mapped := apperrors.MapDBError(err)
	if apperrors.IsConflict(mapped) && apperrors.GetField(mapped) == "change_id" {
		// Lost a race with a concurrent submit of the same change_id.
		return apperrors.Conflict("change_id already used for a different delta")
	}
	return mapped
}

func (s *DeltaService) cacheVersion(ctx context.Context, job *model.JobRecord) {
	if s.versions == nil || job == nil {
		return
	}
	if err := s.versions.SetVersion(ctx, job.ID, job.Version); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "version cache update failed", "job_id", job.ID, "error", err)
	}
}

// rejectionTimeout bounds the out-of-band telemetry write.
const rejectionTimeout = 5 * time.Second

// recordRejection persists rejection telemetry without blocking or failing
// the caller's error response.
func (s *DeltaService) recordRejection(ctx context.Context, env *model.DeltaEnvelope, cause error) {
	if s.rejections == nil {
		return
	}

	rejection := buildRejection(env, cause)

	// Detached from the request context: the caller's 412 must not wait on
	// telemetry, and a canceled request must not lose the record.
	bg := context.WithoutCancel(ctx)
	go func() {
		recordCtx, cancel := context.WithTimeout(bg, rejectionTimeout)
		defer cancel()
		if err := s.rejections.Record(recordCtx, rejection); err != nil && s.logger != nil {
			s.logger.ErrorContext(recordCtx, "rejection telemetry write failed",
				"job_id", env.JobID,
				"change_id", env.ChangeID,
				"error", err,
			)
		}
	}()
}

func buildRejection(env *model.DeltaEnvelope, cause error) *model.JobDeltaRejection {
	reason := model.RejectionReasonPrecondition
	switch {
	case apperrors.IsChecksumMismatch(cause):
		reason = model.RejectionReasonChecksum
	case apperrors.IsFieldMismatch(cause):
		reason = model.RejectionReasonFieldMismatch
	}

	raw, err := json.Marshal(env)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}

	rejection := &model.JobDeltaRejection{
		JobID:            env.JobID,
		ActorID:          env.ActorID,
		ChangeID:         env.ChangeID,
		Reason:           reason,
		MismatchedFields: apperrors.GetMismatchedFields(cause),
		Envelope:         raw,
	}
	if env.BeforeChecksum != "" {
		received := env.BeforeChecksum
		rejection.ReceivedChecksum = &received
	}
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) && appErr.ExpectedChecksum != "" {
		expected := appErr.ExpectedChecksum
		rejection.ExpectedChecksum = &expected
	}
	return rejection
}

func (s *DeltaService) emit(operation string, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	m := metrics.DeltaMetric{
		Operation: operation,
		Result:    metrics.ResultApplied,
		Duration:  s.clock().Sub(started),
	}
	switch {
	case err == nil:
	case apperrors.IsStale(err) || apperrors.IsUndoConflict(err):
		m.Result = metrics.ResultRejected
		m.Reason = string(apperrors.GetCode(err))
	default:
		m.Result = metrics.ResultError
		m.Err = err
	}
	metrics.EmitDelta(s.metrics, m)
}

// Undo reverses a previously applied change by replaying its inverse
// through the same validated write path as a forward delta.
func (s *DeltaService) Undo(
	ctx context.Context,
	jobID string,
	req *model.UndoRequest,
) (*model.JobEvent, error) {
	started := s.clock()
	if req == nil {
		return nil, apperrors.Validation("undo request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid undo request")
	}
	target, err := s.events.GetByChangeID(ctx, req.ChangeID)
	if err != nil {
		if isNotFoundSentinel(err) {
			return nil, apperrors.NotFoundf("change %s not found", req.ChangeID)
		}
		return nil, apperrors.MapDBError(err)
	}
	if target.JobID != jobID {
		return nil, apperrors.NotFoundf("change %s not found for job %s", req.ChangeID, jobID)
	}

	if done, compErr := s.events.HasCompensation(ctx, req.ChangeID); compErr != nil {
		return nil, apperrors.MapDBError(compErr)
	} else if done {
		return nil, apperrors.Conflict("change has already been undone")
	}

	// Safety guard: later, un-compensated changes mean this undo would
	// silently revert over legitimate edits.
	if !req.Force {
		newer, countErr := s.events.CountNewerActive(ctx, jobID, target.CreatedAt)
		if countErr != nil {
			return nil, apperrors.MapDBError(countErr)
		}
		if newer > 0 {
			return nil, apperrors.UndoConflict(
				fmt.Sprintf("%d newer change(s) exist; pass force to revert anyway", newer))
		}
	}

	synthetic, synthErr := s.buildInverse(target, req.ActorID)
	if synthErr != nil {
		return nil, synthErr
	}

	compensates := target.ChangeID
	_, event, applyErr := s.jobs.ApplyDelta(ctx, core.ApplyDeltaParams{
		Envelope:    synthetic,
		Compensates: &compensates,
		Validate: func(live *model.JobRecord) error {
			// No client token exists for an undo; the row lock plus a
			// fresh checksum over live state carries the gate's burden.
			return validateAgainstLive(synthetic, live)
		},
	})
	if applyErr != nil {
		mapped := s.mapApplyError(ctx, synthetic, applyErr)
		if apperrors.IsStale(mapped) {
			s.recordRejection(ctx, synthetic, mapped)
			mapped = apperrors.Wrap(mapped, apperrors.ErrCodeUndoConflict,
				"live state no longer matches the change being undone")
		}
		s.emit("undo", started, mapped)
		return nil, mapped
	}

	if s.versions != nil {
		if job, getErr := s.jobs.GetByID(ctx, jobID); getErr == nil {
			s.cacheVersion(ctx, job)
		}
	}
	s.emit("undo", started, nil)
	return event, nil
}

// buildInverse constructs the synthetic envelope reversing target: before
// and after swapped, fields unchanged, with a fresh change id and a
// checksum computed over the synthetic before-values.
func (s *DeltaService) buildInverse(target *model.JobEvent, actorID string) (*model.DeltaEnvelope, error) {
	before, err := target.DecodeAfter()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "corrupt event payload")
	}
	after, err := target.DecodeBefore()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "corrupt event payload")
	}

	synthetic := &model.DeltaEnvelope{
		ChangeID: uuid.NewString(),
		ActorID:  actorID,
		MadeAt:   s.clock().UTC(),
		JobID:    target.JobID,
		Fields:   append([]string(nil), target.Fields...),
		Before:   before,
		After:    after,
	}
	synthetic.BeforeChecksum = delta.Checksum(synthetic.JobID, synthetic.Before)
	return synthetic, nil
}

// Events returns a job's event timeline, oldest first.
func (s *DeltaService) Events(
	ctx context.Context,
	jobID string,
	page core.Page,
) ([]*model.JobEvent, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		if isNotFoundSentinel(err) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, apperrors.MapDBError(err)
	}
	events, err := s.events.ListByJob(ctx, jobID, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return events, nil
}

// Rejections returns a job's rejection telemetry, newest first.
func (s *DeltaService) Rejections(
	ctx context.Context,
	jobID string,
	page core.Page,
) ([]*model.JobDeltaRejection, error) {
	if s.rejections == nil {
		return nil, apperrors.Internal("rejection telemetry is not configured")
	}
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		if isNotFoundSentinel(err) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, apperrors.MapDBError(err)
	}
	rejections, err := s.rejections.ListByJob(ctx, jobID, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return rejections, nil
}
