package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// envelopeValidator validates DeltaEnvelope struct tags. Shared because
// validator.Validate caches struct metadata.
var envelopeValidator = validator.New(validator.WithRequiredStructEnabled())

// DeltaEnvelope is the caller-constructed change description for a job
// mutation. It is transient: accepted envelopes are persisted as JobEvents,
// rejected ones as JobDeltaRejections.
type DeltaEnvelope struct {
	// ChangeID is a client-generated idempotency key.
	ChangeID string `json:"change_id"       validate:"required,uuid"`
	// ActorID identifies the user or system submitting the change.
	ActorID string `json:"actor_id"        validate:"required,max=128"`
	// MadeAt is when the client constructed the envelope (UTC).
	MadeAt time.Time `json:"made_at"         validate:"required"`
	// JobID is the target job.
	JobID string `json:"job_id"          validate:"required,uuid"`
	// Fields names the delta-mutable fields this envelope touches.
	Fields []string `json:"fields"          validate:"required,min=1,dive,required"`
	// Before holds the values the client last observed, keyed by field.
	Before map[string]any `json:"before"          validate:"required"`
	// After holds the desired values, keyed by field.
	After map[string]any `json:"after"           validate:"required"`
	// BeforeChecksum is the canonical checksum over (job_id, Before).
	BeforeChecksum string `json:"before_checksum" validate:"required,len=64,hexadecimal"`
	// ETag is the opaque version token the client last saw. Optional in the
	// body when supplied via the If-Match header.
	ETag string `json:"etag,omitempty"`
}

// Validate performs structural validation: required fields, field-set
// consistency between Fields/Before/After, and delta-field membership.
// Structural failures are non-recoverable by retry; the caller must fix
// the request shape.
func (e *DeltaEnvelope) Validate() error {
	if err := envelopeValidator.Struct(e); err != nil {
		return fmt.Errorf("envelope structure: %w", err)
	}

	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f] {
			return fmt.Errorf("duplicate field %q", f)
		}
		seen[f] = true
		if !IsDeltaField(f) {
			return fmt.Errorf("field %q is not delta-mutable", f)
		}
	}

	if len(e.Before) != len(e.Fields) || len(e.After) != len(e.Fields) {
		return fmt.Errorf("fields/before/after key sets differ: %d fields, %d before, %d after",
			len(e.Fields), len(e.Before), len(e.After))
	}
	for _, f := range e.Fields {
		if _, ok := e.Before[f]; !ok {
			return fmt.Errorf("field %q missing from before", f)
		}
		if _, ok := e.After[f]; !ok {
			return fmt.Errorf("field %q missing from after", f)
		}
	}
	return nil
}

// SortedFields returns the envelope's field names in canonical order.
func (e *DeltaEnvelope) SortedFields() []string {
	out := make([]string, len(e.Fields))
	copy(out, e.Fields)
	sort.Strings(out)
	return out
}

// Inverse builds the synthetic envelope that reverses this one: before and
// after swapped, fields unchanged. Used by undo, which replays the result
// through the same validation path as a forward change.
func (e *DeltaEnvelope) Inverse(changeID, actorID string, madeAt time.Time) *DeltaEnvelope {
	return &DeltaEnvelope{
		ChangeID: changeID,
		ActorID:  actorID,
		MadeAt:   madeAt,
		JobID:    e.JobID,
		Fields:   e.SortedFields(),
		Before:   e.After,
		After:    e.Before,
	}
}

// EventSchemaVersion is stamped on every persisted JobEvent so the delta
// shape can evolve without breaking older rows.
const EventSchemaVersion = 1

// JobEvent is the persisted audit/undo record of an accepted delta.
// Events are append-only: never mutated or deleted after creation.
type JobEvent struct {
	ID            string          `json:"id"                    db:"id"`
	ChangeID      string          `json:"change_id"             db:"change_id"`
	JobID         string          `json:"job_id"                db:"job_id"`
	ActorID       string          `json:"actor_id"              db:"actor_id"`
	SchemaVersion int             `json:"schema_version"        db:"schema_version"`
	Fields        []string        `json:"fields"                db:"delta_fields"`
	Before        json.RawMessage `json:"delta_before"          db:"delta_before"`
	After         json.RawMessage `json:"delta_after"           db:"delta_after"`
	Checksum      string          `json:"delta_checksum"        db:"delta_checksum"`
	// Compensates references the change_id this event reverses, set only
	// on events created by undo.
	Compensates *string   `json:"compensates,omitempty" db:"compensates"`
	CreatedAt   time.Time `json:"created_at"            db:"created_at"`
}

// IsCompensating reports whether this event was created by an undo.
func (e *JobEvent) IsCompensating() bool {
	return e.Compensates != nil
}

// DecodeBefore unmarshals the stored before-values.
func (e *JobEvent) DecodeBefore() (map[string]any, error) {
	return decodeDelta(e.Before, "delta_before")
}

// DecodeAfter unmarshals the stored after-values.
func (e *JobEvent) DecodeAfter() (map[string]any, error) {
	return decodeDelta(e.After, "delta_after")
}

func decodeDelta(raw json.RawMessage, what string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return m, nil
}

// RejectionReason categorizes why an envelope was refused.
type RejectionReason string

const (
	// RejectionReasonPrecondition records a stale ETag.
	RejectionReasonPrecondition RejectionReason = "precondition_failed"
	// RejectionReasonChecksum records a before-checksum mismatch.
	RejectionReasonChecksum RejectionReason = "checksum_mismatch"
	// RejectionReasonFieldMismatch records a literal before-value divergence.
	RejectionReasonFieldMismatch RejectionReason = "field_mismatch"
)

// JobDeltaRejection is the forensic record of a rejected envelope. It never
// affects job state and is retained per the configured retention window.
type JobDeltaRejection struct {
	ID               string          `json:"id"                          db:"id"`
	JobID            string          `json:"job_id"                      db:"job_id"`
	ActorID          string          `json:"actor_id"                    db:"actor_id"`
	ChangeID         string          `json:"change_id"                   db:"change_id"`
	Reason           RejectionReason `json:"reason"                      db:"reason"`
	MismatchedFields []string        `json:"mismatched_fields,omitempty" db:"mismatched_fields"`
	Envelope         json.RawMessage `json:"envelope"                    db:"envelope"`
	ExpectedChecksum *string         `json:"expected_checksum,omitempty" db:"expected_checksum"`
	ReceivedChecksum *string         `json:"received_checksum,omitempty" db:"received_checksum"`
	CreatedAt        time.Time       `json:"created_at"                  db:"created_at"`
}

// UndoRequest asks the ledger to reverse a previously applied change.
type UndoRequest struct {
	ChangeID string `json:"change_id" validate:"required,uuid"`
	// ActorID identifies who is requesting the reversal. The HTTP layer
	// fills it from attribution headers when the body omits it.
	ActorID string `json:"actor_id"  validate:"required,max=128"`
	// Force overrides the newer-deltas safety guard.
	Force bool `json:"force"`
}

// Validate validates the UndoRequest fields.
func (r *UndoRequest) Validate() error {
	if err := envelopeValidator.Struct(r); err != nil {
		return fmt.Errorf("undo request: %w", err)
	}
	return nil
}
