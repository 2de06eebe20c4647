package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			if GetCode(got) != tt.wantCode {
				t.Errorf("code = %v, want %v", GetCode(got), tt.wantCode)
			}
			if !errors.Is(got, tt.err) {
				t.Error("mapped error should wrap the original")
			}
		})
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	got := MapDBError(pgx.ErrNoRows)
	if !IsNotFound(got) {
		t.Errorf("expected not_found, got %v", GetCode(got))
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: `Key (change_id)=(7c0e) already exists.`,
	}
	got := MapDBError(pgErr)
	if !IsConflict(got) {
		t.Fatalf("expected conflict, got %v", GetCode(got))
	}
	if GetField(got) != "change_id" {
		t.Errorf("field = %q, want change_id", GetField(got))
	}
}

func TestMapDBError_UniqueViolation_PrefersColumnName(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.UniqueViolation,
		ColumnName: "order_number",
		Detail:     `Key (something_else)=(x) already exists.`,
	}
	got := MapDBError(pgErr)
	if GetField(got) != "order_number" {
		t.Errorf("field = %q, want order_number", GetField(got))
	}
}

func TestMapDBError_ForeignKeyMissingParent(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (job_id)=(aaa) is not present in table "jobs".`,
	}
	got := MapDBError(pgErr)
	if !IsValidation(got) {
		t.Errorf("expected validation, got %v", GetCode(got))
	}
}

func TestMapDBError_CheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.CheckViolation,
		ConstraintName: "jobs_status_check",
		ColumnName:     "status",
	}
	got := MapDBError(pgErr)
	if !IsValidation(got) {
		t.Errorf("expected validation, got %v", GetCode(got))
	}
	if GetField(got) != "status" {
		t.Errorf("field = %q, want status", GetField(got))
	}
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "name",
	}
	got := MapDBError(pgErr)
	if !IsValidation(got) || GetField(got) != "name" {
		t.Errorf("got code=%v field=%q", GetCode(got), GetField(got))
	}
}

func TestMapDBError_UnrecognizedPassthrough(t *testing.T) {
	plain := errors.New("not a database error")
	if got := MapDBError(plain); !errors.Is(got, plain) {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	if !IsUniqueViolation(MapDBError(pgErr)) {
		t.Error("should detect unique violation through AppError wrapping")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain error is not a unique violation")
	}
}
