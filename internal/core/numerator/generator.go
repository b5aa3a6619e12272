// Package numerator provides contracts for human-readable sequential numbers
// (transaction, voucher and invoice numbers).
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential numbers per scope.
//
// Implementations must allocate inside the transaction carried by ctx so that
// a rolled-back posting does not consume a number.
type Generator interface {
	// GetNextNumber returns the next number for cfg.Prefix within the reset period.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., HOS-TX-2024-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current counter value (for data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
