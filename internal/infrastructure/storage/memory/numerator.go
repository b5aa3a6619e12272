package memory

import (
	"context"
	"fmt"
	"time"

	"clinicledger/internal/core/numerator"
)

// Numerator implements numerator.Generator on the store's sequence table.
// Numbers taken in a rolled-back transaction are released with it.
type Numerator struct{ s *Store }

var _ numerator.Generator = (*Numerator)(nil)

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := cfg.Key(period)
	var next int64
	err := n.s.with(ctx, func(st *state) error {
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return cfg.Format(period, next), nil
}

func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	if value < 0 {
		return fmt.Errorf("sequence value cannot be negative: %d", value)
	}
	return n.s.with(ctx, func(st *state) error {
		st.sequences[cfg.Key(period)] = value
		return nil
	})
}
