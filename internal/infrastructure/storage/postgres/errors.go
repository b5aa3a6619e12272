package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"clinicledger/internal/core/apperror"
)

// SQLSTATE codes.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
)

var conflictCodes = map[string]string{
	codeSerializationFailure: "serialization_failure",
	codeDeadlockDetected:     "deadlock_detected",
	codeLockNotAvailable:     "lock_not_available",
	codeQueryCanceled:        "query_canceled",
}

// MapError classifies a database error. Lock waits, deadlocks, serialization
// failures and cancellations become ConcurrencyConflict; AppErrors pass
// through unchanged; everything else is returned as is and surfaces as
// Internal.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewConcurrentModification("transaction", nil).
			WithDetail("reason", "cancelled").
			WithCause(err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if cause, ok := conflictCodes[pgErr.Code]; ok {
		return apperror.NewConcurrentModification("transaction", nil).
			WithDetail("reason", cause).
			WithCause(err)
	}
	return err
}

// ConflictCause names the reason of a retryable failure for metrics.
func ConflictCause(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if cause, ok := conflictCodes[pgErr.Code]; ok {
			return cause
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	if apperror.IsConcurrentModification(err) {
		return "version_mismatch"
	}
	return "other"
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCheckViolation reports whether err violates the named check constraint.
func IsCheckViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeCheckViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err violates the named foreign key.
func IsForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeForeignKeyViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
