// Package testutil provides testing utilities and helpers for the jobshop
// delta integrity layer.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabworks/jobshop/internal/domain/delta"
	"github.com/fabworks/jobshop/internal/domain/model"
)

// DefaultTestTenant is the tenant ID used by builders unless overridden.
const DefaultTestTenant = "00000000-0000-0000-0000-00000000c0de"

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			TenantID: DefaultTestTenant,
			Name:     "Test fabrication job",
		},
	}
}

// WithTenant sets the tenant ID.
func (b *JobRequestBuilder) WithTenant(tenantID string) *JobRequestBuilder {
	b.req.TenantID = tenantID
	return b
}

// WithName sets the job name.
func (b *JobRequestBuilder) WithName(name string) *JobRequestBuilder {
	b.req.Name = name
	return b
}

// WithOrderNumber sets the order number.
func (b *JobRequestBuilder) WithOrderNumber(orderNumber string) *JobRequestBuilder {
	b.req.OrderNumber = StringPtr(orderNumber)
	return b
}

// WithDescription sets the description.
func (b *JobRequestBuilder) WithDescription(description string) *JobRequestBuilder {
	b.req.Description = StringPtr(description)
	return b
}

// WithNotes sets the notes.
func (b *JobRequestBuilder) WithNotes(notes string) *JobRequestBuilder {
	b.req.Notes = StringPtr(notes)
	return b
}

// WithContact sets the customer contact.
func (b *JobRequestBuilder) WithContact(contact string) *JobRequestBuilder {
	b.req.Contact = StringPtr(contact)
	return b
}

// WithQuotedTotal sets the quoted total.
func (b *JobRequestBuilder) WithQuotedTotal(total float64) *JobRequestBuilder {
	b.req.QuotedTotal = Float64Ptr(total)
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// EnvelopeBuilder provides a fluent interface for building DeltaEnvelope
// objects whose before-values and checksum agree with a live job record.
type EnvelopeBuilder struct {
	job     *model.JobRecord
	actorID string
	madeAt  time.Time
	before  map[string]any
	after   map[string]any
	fields  []string
	etag    string
}

// NewEnvelope starts an envelope against the given live job. Before values
// default to the job's current field values.
func NewEnvelope(job *model.JobRecord) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		job:     job,
		actorID: "testutil@jobshop",
		madeAt:  time.Now().UTC(),
		before:  make(map[string]any),
		after:   make(map[string]any),
		etag:    delta.FormatETag(job.Version),
	}
}

// WithActor sets the actor ID.
func (b *EnvelopeBuilder) WithActor(actorID string) *EnvelopeBuilder {
	b.actorID = actorID
	return b
}

// WithETag overrides the version token, e.g. to force a stale write.
func (b *EnvelopeBuilder) WithETag(etag string) *EnvelopeBuilder {
	b.etag = etag
	return b
}

// Set records a change: before is taken from the live job, after from the
// given value.
func (b *EnvelopeBuilder) Set(field string, after any) *EnvelopeBuilder {
	live, ok := b.job.DeltaValue(field)
	if !ok {
		live = nil
	}
	return b.SetWithBefore(field, live, after)
}

// SetWithBefore records a change with an explicit before value, e.g. to
// force a field mismatch.
func (b *EnvelopeBuilder) SetWithBefore(field string, before, after any) *EnvelopeBuilder {
	if _, seen := b.before[field]; !seen {
		b.fields = append(b.fields, field)
	}
	b.before[field] = before
	b.after[field] = after
	return b
}

// Build returns the constructed envelope with a computed checksum and a
// fresh change ID.
func (b *EnvelopeBuilder) Build() *model.DeltaEnvelope {
	return &model.DeltaEnvelope{
		ChangeID:       uuid.NewString(),
		ActorID:        b.actorID,
		MadeAt:         b.madeAt,
		JobID:          b.job.ID,
		Fields:         b.fields,
		Before:         b.before,
		After:          b.after,
		BeforeChecksum: delta.Checksum(b.job.ID, b.before),
		ETag:           b.etag,
	}
}
