package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"clinicledger/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
		cause     string
	}{
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, kind: apperror.KindConcurrencyConflict, retryable: true, cause: "lock_not_available"},
		{name: "deadlock", err: fmt.Errorf("lock account: %w", &pgconn.PgError{Code: "40P01"}), kind: apperror.KindConcurrencyConflict, retryable: true, cause: "deadlock_detected"},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, kind: apperror.KindConcurrencyConflict, retryable: true, cause: "serialization_failure"},
		{name: "statement timeout", err: &pgconn.PgError{Code: "57014"}, kind: apperror.KindConcurrencyConflict, retryable: true, cause: "query_canceled"},
		{name: "cancelled context", err: fmt.Errorf("query: %w", context.Canceled), kind: apperror.KindConcurrencyConflict, retryable: true, cause: "cancelled"},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, kind: apperror.KindInternal, cause: "other"},
		{name: "plain error", err: errors.New("boom"), kind: apperror.KindInternal, cause: "other"},
		{name: "app error passes", err: apperror.NewInsufficientBalance("main", 10, 5), kind: apperror.KindInsufficientBalance, cause: "other"},
		{name: "version mismatch", err: apperror.NewConcurrentModification("account", "main"), kind: apperror.KindConcurrencyConflict, retryable: true, cause: "version_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			assert.Equal(t, tt.kind, apperror.Kind(mapped))
			assert.Equal(t, tt.retryable, apperror.IsRetryable(mapped))
			assert.Equal(t, tt.cause, ConflictCause(tt.err))
		})
	}
	assert.NoError(t, MapError(nil))
}

func TestConstraintHelpers(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "journal_entries_transaction_no_key"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "journal_entries_transaction_no_key"))
	assert.False(t, IsUniqueViolation(err, "sales_invoice_no_key"))

	check := &pgconn.PgError{Code: "23514", ConstraintName: "stock_items_quantity_check"}
	assert.True(t, IsCheckViolation(check, "stock_items_quantity_check"))
	assert.False(t, IsCheckViolation(err, ""))
}
