package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope() *DeltaEnvelope {
	return &DeltaEnvelope{
		ChangeID:       uuid.NewString(),
		ActorID:        "corrin",
		MadeAt:         time.Now().UTC(),
		JobID:          uuid.NewString(),
		Fields:         []string{"description"},
		Before:         map[string]any{"description": "Cut and fold"},
		After:          map[string]any{"description": ""},
		BeforeChecksum: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
}

func TestDeltaEnvelope_Validate(t *testing.T) {
	require.NoError(t, validEnvelope().Validate())
}

func TestDeltaEnvelope_Validate_Structural(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeltaEnvelope)
	}{
		{"missing change_id", func(e *DeltaEnvelope) { e.ChangeID = "" }},
		{"non-uuid change_id", func(e *DeltaEnvelope) { e.ChangeID = "not-a-uuid" }},
		{"missing actor", func(e *DeltaEnvelope) { e.ActorID = "" }},
		{"missing job_id", func(e *DeltaEnvelope) { e.JobID = "" }},
		{"empty fields", func(e *DeltaEnvelope) { e.Fields = nil }},
		{"short checksum", func(e *DeltaEnvelope) { e.BeforeChecksum = "abc123" }},
		{"non-hex checksum", func(e *DeltaEnvelope) {
			e.BeforeChecksum = "zzzz456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
		}},
		{"duplicate field", func(e *DeltaEnvelope) {
			e.Fields = []string{"description", "description"}
		}},
		{"unknown field", func(e *DeltaEnvelope) {
			e.Fields = []string{"version"}
			e.Before = map[string]any{"version": 1}
			e.After = map[string]any{"version": 2}
		}},
		{"before missing key", func(e *DeltaEnvelope) {
			e.Before = map[string]any{"notes": "x"}
		}},
		{"after has extra key", func(e *DeltaEnvelope) {
			e.After["notes"] = "x"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEnvelope()
			tt.mutate(e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestDeltaEnvelope_Inverse(t *testing.T) {
	e := validEnvelope()
	e.Fields = []string{"order_number", "description"}
	e.Before = map[string]any{"description": "Cut", "order_number": "PO-1"}
	e.After = map[string]any{"description": "Fold", "order_number": "PO-2"}

	id := uuid.NewString()
	now := time.Now().UTC()
	inv := e.Inverse(id, "grayson", now)

	assert.Equal(t, id, inv.ChangeID)
	assert.Equal(t, "grayson", inv.ActorID)
	assert.Equal(t, e.JobID, inv.JobID)
	assert.Equal(t, []string{"description", "order_number"}, inv.Fields)
	assert.Equal(t, e.After, inv.Before)
	assert.Equal(t, e.Before, inv.After)
}

func TestJobRecord_DeltaValueRoundTrip(t *testing.T) {
	job := &JobRecord{Name: "Gate frame", Status: JobStatusQuoting}

	require.NoError(t, job.SetDeltaValue("description", "powder coat black"))
	require.NoError(t, job.SetDeltaValue("quoted_total", 1250.5))
	require.NoError(t, job.SetDeltaValue("status", "in_progress"))
	require.NoError(t, job.SetDeltaValue("notes", nil))

	v, ok := job.DeltaValue("description")
	require.True(t, ok)
	assert.Equal(t, "powder coat black", v)

	v, ok = job.DeltaValue("quoted_total")
	require.True(t, ok)
	assert.Equal(t, 1250.5, v)

	v, ok = job.DeltaValue("status")
	require.True(t, ok)
	assert.Equal(t, "in_progress", v)

	v, ok = job.DeltaValue("notes")
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = job.DeltaValue("version")
	assert.False(t, ok)
}

func TestJobRecord_SetDeltaValue_Typing(t *testing.T) {
	job := &JobRecord{Name: "Gate frame", Status: JobStatusQuoting}

	assert.Error(t, job.SetDeltaValue("name", nil), "name is not nullable")
	assert.Error(t, job.SetDeltaValue("name", ""), "name cannot be empty")
	assert.Error(t, job.SetDeltaValue("quoted_total", "12.50"), "quoted_total must be numeric")
	assert.Error(t, job.SetDeltaValue("quoted_total", -1.0))
	assert.Error(t, job.SetDeltaValue("status", "nonsense"))
	assert.Error(t, job.SetDeltaValue("bogus", "x"))

	// Failed sets must not touch the record.
	assert.Equal(t, "Gate frame", job.Name)
	assert.Nil(t, job.QuotedTotal)
	assert.Equal(t, JobStatusQuoting, job.Status)
}

func TestIsDeltaField(t *testing.T) {
	for _, f := range DeltaFields() {
		assert.True(t, IsDeltaField(f), f)
	}
	assert.False(t, IsDeltaField("version"))
	assert.False(t, IsDeltaField("tenant_id"))
	assert.False(t, IsDeltaField("created_at"))
}

func TestCreateJobRequest_Validate(t *testing.T) {
	neg := -5.0
	tests := []struct {
		name    string
		req     CreateJobRequest
		wantErr bool
	}{
		{"valid", CreateJobRequest{TenantID: "msm", Name: "Handrail"}, false},
		{"missing tenant", CreateJobRequest{Name: "Handrail"}, true},
		{"missing name", CreateJobRequest{TenantID: "msm"}, true},
		{"blank name", CreateJobRequest{TenantID: "msm", Name: "   "}, true},
		{"negative total", CreateJobRequest{TenantID: "msm", Name: "x", QuotedTotal: &neg}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobStatus_UnmarshalText(t *testing.T) {
	var s JobStatus
	require.NoError(t, s.UnmarshalText([]byte(" In_Progress ")))
	assert.Equal(t, JobStatusInProgress, s)
	assert.Error(t, s.UnmarshalText([]byte("shipped")))
}

func TestUndoRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UndoRequest{ChangeID: uuid.NewString()}).Validate())
	assert.Error(t, (&UndoRequest{}).Validate())
	assert.Error(t, (&UndoRequest{ChangeID: "abc"}).Validate())
}
