// Package model defines the core data types for the jobshop delta-integrity service.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the workflow state of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusQuoting indicates a job still being quoted.
	JobStatusQuoting JobStatus = "quoting"
	// JobStatusAcceptedQuote indicates the customer accepted the quote.
	JobStatusAcceptedQuote JobStatus = "accepted_quote"
	// JobStatusInProgress indicates work is underway.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusOnHold indicates work is paused.
	JobStatusOnHold JobStatus = "on_hold"
	// JobStatusCompleted indicates work has finished.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusArchived indicates the job is closed out and read-mostly.
	JobStatusArchived JobStatus = "archived"
)

// Valid returns true if the JobStatus is a known workflow state.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQuoting, JobStatusAcceptedQuote, JobStatusInProgress,
		JobStatusOnHold, JobStatusCompleted, JobStatusArchived:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// JobRecord is the mutable business entity. All writes to delta-managed
// fields go through the validated delta path; Version is the monotonically
// increasing token backing the ETag concurrency gate.
type JobRecord struct {
	ID          string     `json:"id"                     db:"id"`
	TenantID    string     `json:"tenant_id"              db:"tenant_id"`
	Name        string     `json:"name"                   db:"name"`
	Description *string    `json:"description,omitempty"  db:"description"`
	OrderNumber *string    `json:"order_number,omitempty" db:"order_number"`
	Status      JobStatus  `json:"status"                 db:"status"`
	Notes       *string    `json:"notes,omitempty"        db:"notes"`
	Contact     *string    `json:"contact,omitempty"      db:"contact"`
	QuotedTotal *float64   `json:"quoted_total,omitempty" db:"quoted_total"`
	Version     int64      `json:"version"                db:"version"`
	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"             db:"updated_at"`
}

// deltaFields enumerates the JobRecord fields mutable through the delta
// path, in canonical (sorted) order.
var deltaFields = []string{
	"contact",
	"description",
	"name",
	"notes",
	"order_number",
	"quoted_total",
	"status",
}

// DeltaFields returns the names of all delta-mutable fields.
func DeltaFields() []string {
	out := make([]string, len(deltaFields))
	copy(out, deltaFields)
	return out
}

// IsDeltaField reports whether name is mutable through the delta path.
func IsDeltaField(name string) bool {
	for _, f := range deltaFields {
		if f == name {
			return true
		}
	}
	return false
}

// DeltaValue returns the live value of a delta-mutable field. Pointer
// fields surface as nil when unset so they canonicalize to the null
// sentinel. The second return is false for unknown fields.
func (j *JobRecord) DeltaValue(name string) (any, bool) {
	switch name {
	case "name":
		return j.Name, true
	case "description":
		return ptrValue(j.Description), true
	case "order_number":
		return ptrValue(j.OrderNumber), true
	case "status":
		return string(j.Status), true
	case "notes":
		return ptrValue(j.Notes), true
	case "contact":
		return ptrValue(j.Contact), true
	case "quoted_total":
		if j.QuotedTotal == nil {
			return nil, true
		}
		return *j.QuotedTotal, true
	default:
		return nil, false
	}
}

// SetDeltaValue assigns a caller-supplied value to a delta-mutable field,
// enforcing per-field typing. Values arrive as decoded JSON (string,
// float64, nil).
func (j *JobRecord) SetDeltaValue(name string, value any) error {
	switch name {
	case "name":
		s, err := requireString(name, value)
		if err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("field %q cannot be empty", name)
		}
		j.Name = s
	case "description":
		p, err := optionalString(name, value)
		if err != nil {
			return err
		}
		j.Description = p
	case "order_number":
		p, err := optionalString(name, value)
		if err != nil {
			return err
		}
		j.OrderNumber = p
	case "status":
		s, err := requireString(name, value)
		if err != nil {
			return err
		}
		st := JobStatus(s)
		if !st.Valid() {
			return fmt.Errorf("invalid status %q", s)
		}
		j.Status = st
	case "notes":
		p, err := optionalString(name, value)
		if err != nil {
			return err
		}
		j.Notes = p
	case "contact":
		p, err := optionalString(name, value)
		if err != nil {
			return err
		}
		j.Contact = p
	case "quoted_total":
		if value == nil {
			j.QuotedTotal = nil
			return nil
		}
		n, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %q must be a number or null", name)
		}
		if n < 0 {
			return fmt.Errorf("field %q cannot be negative", name)
		}
		j.QuotedTotal = &n
	default:
		return fmt.Errorf("unknown delta field %q", name)
	}
	return nil
}

func ptrValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func requireString(name string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return s, nil
}

func optionalString(name string, value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("field %q must be a string or null", name)
	}
	return &s, nil
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	OrderNumber *string  `json:"order_number,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	Contact     *string  `json:"contact,omitempty"`
	QuotedTotal *float64 `json:"quoted_total,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return errors.New("tenant_id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.QuotedTotal != nil && *r.QuotedTotal < 0 {
		return errors.New("quoted_total cannot be negative")
	}
	return nil
}

// JobListOptions controls job listing filters and paging.
type JobListOptions struct {
	TenantID string
	Status   JobStatus
	Limit    int
	Offset   int
}
