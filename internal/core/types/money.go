// Package types provides the money representation shared by the ledger.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyDecimals is the number of fractional digits of the clinic currency (taka/paisa).
const CurrencyDecimals = 2

// MinorUnits represents a monetary value in paisa.
// Storage: BIGINT. Example: ৳1,260.50 → 126050.
type MinorUnits int64

// MaxAmount bounds the magnitude of every parsed or computed amount, leaving
// headroom below the int64 limit.
const MaxAmount MinorUnits = 1 << 62

// ErrOutOfRange is returned when an amount leaves [-MaxAmount, MaxAmount].
var ErrOutOfRange = errors.New("amount out of range")

// ParseMinorUnits parses a major-unit decimal string ("1260.50") into minor units.
// More than two fractional digits is an error rather than a silent rounding.
func ParseMinorUnits(s string) (MinorUnits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount: %w", err)
	}
	return FromDecimal(d)
}

// MustMinorUnits parses s, panics on error.
// Use only for constants and tests.
func MustMinorUnits(s string) MinorUnits {
	m, err := ParseMinorUnits(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMajor converts a whole-taka amount to minor units.
func FromMajor(major int64) MinorUnits {
	return MinorUnits(major * 100)
}

// FromDecimal converts an exact major-unit decimal into minor units.
func FromDecimal(d decimal.Decimal) (MinorUnits, error) {
	scaled := d.Shift(CurrencyDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d fractional digits", d.String(), CurrencyDecimals)
	}
	return fromScaled(scaled)
}

func fromScaled(scaled decimal.Decimal) (MinorUnits, error) {
	if scaled.Abs().GreaterThan(decimal.NewFromInt(int64(MaxAmount))) {
		return 0, fmt.Errorf("%s: %w", scaled.Shift(-CurrencyDecimals).String(), ErrOutOfRange)
	}
	return MinorUnits(scaled.IntPart()), nil
}

// Decimal returns the major-unit decimal value.
func (m MinorUnits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -CurrencyDecimals)
}

// Percent returns pct percent of m, rounded half away from zero to whole paisa.
func (m MinorUnits) Percent(pct decimal.Decimal) MinorUnits {
	v := decimal.NewFromInt(int64(m)).Mul(pct).Div(decimal.NewFromInt(100)).Round(0)
	return MinorUnits(v.IntPart())
}

// MulQty multiplies a unit price by an integer quantity.
func (m MinorUnits) MulQty(qty int64) (MinorUnits, error) {
	return fromScaled(decimal.NewFromInt(int64(m)).Mul(decimal.NewFromInt(qty)))
}

// Add returns m+o, failing with ErrOutOfRange instead of wrapping.
func (m MinorUnits) Add(o MinorUnits) (MinorUnits, error) {
	if (o > 0 && m > MaxAmount-o) || (o < 0 && m < -MaxAmount-o) {
		return 0, fmt.Errorf("%s + %s: %w", m, o, ErrOutOfRange)
	}
	return m + o, nil
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }
func (m MinorUnits) Neg() MinorUnits  { return -m }
func (m MinorUnits) Abs() MinorUnits {
	if m < 0 {
		return -m
	}
	return m
}

// String returns a decimal string with 2 fractional digits.
func (m MinorUnits) String() string {
	return m.Decimal().StringFixed(CurrencyDecimals)
}

// MarshalJSON encodes MinorUnits as a JSON number with 2 fractional digits.
func (m MinorUnits) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string in major units.
func (m *MinorUnits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	parsed, err := ParseMinorUnits(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds up amounts with Add.
func Sum(amounts ...MinorUnits) (MinorUnits, error) {
	var total MinorUnits
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}
