// Package apperror provides structured error handling for the ledger engine.
// All business errors must use AppError so callers receive a stable error kind.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInvalidPayment      = "INVALID_PAYMENT"
	CodePaymentIncomplete   = "PAYMENT_INCOMPLETE"

	// Contention (409), retryable
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// Error kinds reported to engine callers.
const (
	KindValidation          = "ValidationError"
	KindInsufficientBalance = "InsufficientBalance"
	KindInsufficientStock   = "InsufficientStock"
	KindInvalidPayment      = "InvalidPayment"
	KindPaymentIncomplete   = "PaymentIncomplete"
	KindNotFound            = "NotFound"
	KindConcurrencyConflict = "ConcurrencyConflict"
	KindUnauthorized        = "Unauthorized"
	KindInternal            = "Internal"
)

var codeKinds = map[string]string{
	CodeValidation:             KindValidation,
	CodeInsufficientBalance:    KindInsufficientBalance,
	CodeInsufficientStock:      KindInsufficientStock,
	CodeInvalidPayment:         KindInvalidPayment,
	CodePaymentIncomplete:      KindPaymentIncomplete,
	CodeNotFound:               KindNotFound,
	CodeConcurrentModification: KindConcurrencyConflict,
	CodeIdempotency:            KindConcurrencyConflict,
	CodeUnauthorized:           KindUnauthorized,
	CodeInternal:               KindInternal,
}

// AppError is the standard error type for the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, amounts, quantities)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the caller-facing error kind for the code.
func (e *AppError) Kind() string {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindInternal
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientBalance is returned when a debit exceeds the account balance.
func NewInsufficientBalance(account string, requested, available any) *AppError {
	return &AppError{
		Code:       CodeInsufficientBalance,
		Message:    "Insufficient balance",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"account":   account,
			"requested": requested,
			"available": available,
		},
	}
}

// NewInsufficientStock creates a stock shortage error.
// Shortages for individual lines are attached via WithDetail("shortages", ...).
func NewInsufficientStock(message string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidPayment is returned for payments or advances outside the allowed range.
func NewInvalidPayment(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidPayment,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewPaymentIncomplete is returned when delivering a sale that still has a due amount.
func NewPaymentIncomplete(saleID any, due any) *AppError {
	return &AppError{
		Code:       CodePaymentIncomplete,
		Message:    "Sale cannot be delivered until fully paid",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"sale_id": saleID, "due_amount": due},
	}
}

// NewConcurrentModification creates a retryable contention error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently. Please retry.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Normalize converts any error into an AppError.
// Context cancellation and deadlines become retryable conflicts.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewConcurrentModification("operation", nil).
			WithDetail("reason", "cancelled").
			WithCause(err)
	}
	return NewInternal(err)
}

// Kind returns the caller-facing error kind for any error.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	return Normalize(err).Kind()
}

// IsRetryable reports whether the caller may retry the same call unchanged.
func IsRetryable(err error) bool {
	return Kind(err) == KindConcurrencyConflict
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	return Normalize(err).HTTPStatus
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return Is(err, CodeConcurrentModification)
}
