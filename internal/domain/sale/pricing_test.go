package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/types"
)

func TestPrice(t *testing.T) {
	frame := Item{Quantity: 1, UnitPrice: types.FromMajor(1200)}
	lenses := Item{Quantity: 2, UnitPrice: types.MustMinorUnits("450.50")}

	tests := []struct {
		name     string
		items    []Item
		fitting  types.MinorUnits
		discount DiscountSpec
		want     Quote
	}{
		{
			name:     "percent on subtotal plus fitting",
			items:    []Item{frame},
			fitting:  types.FromMajor(200),
			discount: DiscountSpec{Kind: DiscountPercent, Percent: decimal.NewFromInt(10)},
			want: Quote{
				Subtotal:       types.FromMajor(1200),
				FittingPrice:   types.FromMajor(200),
				DiscountAmount: types.FromMajor(140),
				Total:          types.FromMajor(1260),
			},
		},
		{
			name:     "fixed amount",
			items:    []Item{frame, lenses},
			discount: DiscountSpec{Kind: DiscountAmount, Amount: types.FromMajor(101)},
			want: Quote{
				Subtotal:       types.FromMajor(2101),
				DiscountAmount: types.FromMajor(101),
				Total:          types.FromMajor(2000),
			},
		},
		{
			name:     "fractional percent rounds to paisa",
			items:    []Item{{Quantity: 1, UnitPrice: types.MustMinorUnits("99.99")}},
			discount: DiscountSpec{Kind: DiscountPercent, Percent: decimal.RequireFromString("12.5")},
			want: Quote{
				Subtotal:       types.MustMinorUnits("99.99"),
				DiscountAmount: types.MustMinorUnits("12.50"),
				Total:          types.MustMinorUnits("87.49"),
			},
		},
		{
			name:  "no discount",
			items: []Item{lenses},
			want: Quote{
				Subtotal: types.FromMajor(901),
				Total:    types.FromMajor(901),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.items, tt.fitting, tt.discount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrice_DiscountAboveBase(t *testing.T) {
	_, err := Price(
		[]Item{{Quantity: 1, UnitPrice: types.FromMajor(100)}},
		types.FromMajor(20),
		DiscountSpec{Kind: DiscountAmount, Amount: types.MustMinorUnits("120.01")},
	)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
}

func TestPrice_OutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		fitting types.MinorUnits
	}{
		{"line amount wraps", []Item{{Quantity: 4, UnitPrice: types.MaxAmount}}, 0},
		{"subtotal", []Item{{Quantity: 1, UnitPrice: types.MaxAmount}, {Quantity: 1, UnitPrice: 1}}, 0},
		{"subtotal plus fitting", []Item{{Quantity: 1, UnitPrice: types.MaxAmount}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Price(tt.items, tt.fitting, DiscountSpec{})
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
		})
	}

	q, err := Price([]Item{{Quantity: 1, UnitPrice: types.MaxAmount}}, 0, DiscountSpec{})
	require.NoError(t, err)
	assert.Equal(t, types.MaxAmount, q.Total)
}

func TestDiscountSpec_Validate(t *testing.T) {
	assert.NoError(t, DiscountSpec{}.Validate())
	assert.NoError(t, DiscountSpec{Kind: DiscountPercent, Percent: decimal.NewFromInt(100)}.Validate())
	assert.Error(t, DiscountSpec{Kind: DiscountPercent, Percent: decimal.NewFromInt(-1)}.Validate())
	assert.Error(t, DiscountSpec{Kind: DiscountAmount, Amount: -1}.Validate())
	assert.Error(t, DiscountSpec{Kind: "coupon"}.Validate())
}

func TestExpectedDue_IgnoresAdvanceRow(t *testing.T) {
	s := &Sale{TotalAmount: types.FromMajor(1260), AdvancePayment: types.FromMajor(500)}
	payments := []Payment{
		{Amount: types.FromMajor(500), IsAdvance: true},
		{Amount: types.FromMajor(300)},
	}
	assert.Equal(t, types.FromMajor(460), s.ExpectedDue(payments))
}
