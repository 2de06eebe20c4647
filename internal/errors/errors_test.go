package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "job not found"},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to apply delta",
				Cause:   errors.New("connection reset"),
			},
			want: "failed to apply delta: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{Code: ErrCodeInternal, Message: "wrapped", Cause: cause}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through AppError to the cause")
	}
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"not found", NotFound("missing"), IsNotFound, true},
		{"conflict", Conflict("duplicate change_id"), IsConflict, true},
		{"validation", Validation("bad envelope"), IsValidation, true},
		{"precondition", Precondition("stale etag"), IsPrecondition, true},
		{"checksum mismatch", ChecksumMismatch("abc123", []string{"notes"}), IsChecksumMismatch, true},
		{"field mismatch", FieldMismatch([]string{"status"}), IsFieldMismatch, true},
		{"undo conflict", UndoConflict("newer deltas"), IsUndoConflict, true},
		{"wrong predicate", NotFound("missing"), IsConflict, false},
		{"plain error", errors.New("plain"), IsNotFound, false},
		{"nil", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodePredicates_WrappedErrors(t *testing.T) {
	inner := Precondition("stale etag")
	outer := fmt.Errorf("apply delta: %w", inner)

	if !IsPrecondition(outer) {
		t.Error("IsPrecondition should match through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodePrecondition {
		t.Errorf("GetCode = %v, want %v", GetCode(outer), ErrCodePrecondition)
	}
}

func TestIsStale(t *testing.T) {
	stale := []error{
		Precondition("stale etag"),
		ChecksumMismatch("abc", nil),
		FieldMismatch([]string{"notes"}),
	}
	for _, err := range stale {
		if !IsStale(err) {
			t.Errorf("IsStale(%v) = false, want true", err)
		}
	}

	fresh := []error{
		NotFound("missing"),
		Validation("bad"),
		UndoConflict("newer"),
		nil,
	}
	for _, err := range fresh {
		if IsStale(err) {
			t.Errorf("IsStale(%v) = true, want false", err)
		}
	}
}

func TestGetMismatchedFields(t *testing.T) {
	err := FieldMismatch([]string{"name", "order_number"})
	got := GetMismatchedFields(fmt.Errorf("wrap: %w", err))
	if len(got) != 2 || got[0] != "name" || got[1] != "order_number" {
		t.Errorf("GetMismatchedFields = %v", got)
	}

	if GetMismatchedFields(errors.New("plain")) != nil {
		t.Error("expected nil for non-AppError")
	}
}

func TestChecksumMismatch_CarriesExpected(t *testing.T) {
	err := ChecksumMismatch("deadbeef", []string{"notes"})
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("expected AppError")
	}
	if appErr.ExpectedChecksum != "deadbeef" {
		t.Errorf("ExpectedChecksum = %q", appErr.ExpectedChecksum)
	}
}
