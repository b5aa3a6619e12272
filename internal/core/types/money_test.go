package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		in      string
		want    MinorUnits
		wantErr bool
	}{
		{"1260", 126000, false},
		{"1260.5", 126050, false},
		{"1260.50", 126050, false},
		{"0.01", 1, false},
		{"-5", -500, false},
		{" 10 ", 1000, false},
		{"1.005", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMinorUnits(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinorUnits_String(t *testing.T) {
	assert.Equal(t, "1260.00", FromMajor(1260).String())
	assert.Equal(t, "0.05", MinorUnits(5).String())
	assert.Equal(t, "-7.50", MinorUnits(-750).String())
}

func TestMinorUnits_Percent(t *testing.T) {
	// 10% of 1400 is 140
	assert.Equal(t, FromMajor(140), FromMajor(1400).Percent(decimal.NewFromInt(10)))

	// 12.5% of 0.99 = 0.12375 -> 0.12
	assert.Equal(t, MinorUnits(12), MinorUnits(99).Percent(decimal.RequireFromString("12.5")))

	// 15% of 0.10 = 0.015 -> 0.02 (half away from zero)
	assert.Equal(t, MinorUnits(2), MinorUnits(10).Percent(decimal.NewFromInt(15)))

	assert.Equal(t, MinorUnits(0), FromMajor(500).Percent(decimal.Zero))
	assert.Equal(t, FromMajor(500), FromMajor(500).Percent(decimal.NewFromInt(100)))
}

func TestMinorUnits_JSON(t *testing.T) {
	type payload struct {
		Amount MinorUnits `json:"amount"`
	}

	data, err := json.Marshal(payload{Amount: MustMinorUnits("760")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 760.00}`, string(data))

	var fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 1260.5}`), &fromNumber))
	assert.Equal(t, MinorUnits(126050), fromNumber.Amount)

	var fromString payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "99.99"}`), &fromString))
	assert.Equal(t, MinorUnits(9999), fromString.Amount)

	var bad payload
	assert.Error(t, json.Unmarshal([]byte(`{"amount": "1.001"}`), &bad))
}

func TestSum(t *testing.T) {
	total, err := Sum(FromMajor(1200), FromMajor(200))
	require.NoError(t, err)
	assert.Equal(t, FromMajor(1400), total)

	total, err = Sum()
	require.NoError(t, err)
	assert.Equal(t, MinorUnits(0), total)

	_, err = Sum(MaxAmount, MaxAmount)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMinorUnits_Add(t *testing.T) {
	got, err := MinorUnits(5).Add(-7)
	require.NoError(t, err)
	assert.Equal(t, MinorUnits(-2), got)

	got, err = (MaxAmount - 1).Add(1)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, got)

	_, err = MaxAmount.Add(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = (-MaxAmount).Add(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMinorUnits_MulQty(t *testing.T) {
	got, err := MustMinorUnits("450.50").MulQty(3)
	require.NoError(t, err)
	assert.Equal(t, MustMinorUnits("1351.50"), got)

	// 2^62 * 4 wraps to zero in int64
	_, err = MaxAmount.MulQty(4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = MinorUnits(1 << 40).MulQty(1 << 30)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseMinorUnits_OutOfRange(t *testing.T) {
	_, err := ParseMinorUnits("46116860184273879.04")
	require.NoError(t, err)

	_, err = ParseMinorUnits("46116860184273879.05")
	assert.ErrorIs(t, err, ErrOutOfRange)
}
