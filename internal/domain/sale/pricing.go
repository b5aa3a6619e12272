package sale

import (
	"errors"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/types"
)

// Quote is the priced breakdown of a sale.
type Quote struct {
	Subtotal       types.MinorUnits `json:"subtotal"`
	FittingPrice   types.MinorUnits `json:"fittingPrice"`
	DiscountAmount types.MinorUnits `json:"discountAmount"`
	Total          types.MinorUnits `json:"total"`
}

// Price computes subtotal, discount and total for the lines.
// A percent discount applies to subtotal plus fitting and is rounded to the
// nearest paisa. A discount larger than subtotal plus fitting is rejected.
func Price(items []Item, fitting types.MinorUnits, discount DiscountSpec) (Quote, error) {
	if err := discount.Validate(); err != nil {
		return Quote{}, err
	}
	if fitting.IsNegative() {
		return Quote{}, apperror.NewValidation("fitting price cannot be negative").WithDetail("field", "fittingPrice")
	}

	var subtotal types.MinorUnits
	for _, it := range items {
		amount, err := it.UnitPrice.MulQty(it.Quantity)
		if err == nil {
			subtotal, err = subtotal.Add(amount)
		}
		if err != nil {
			return Quote{}, outOfRange(err)
		}
	}
	base, err := subtotal.Add(fitting)
	if err != nil {
		return Quote{}, outOfRange(err)
	}

	var amount types.MinorUnits
	switch discount.Kind {
	case DiscountPercent:
		amount = base.Percent(discount.Percent)
	case DiscountAmount:
		amount = discount.Amount
	}
	if amount > base {
		return Quote{}, apperror.NewValidation("discount exceeds subtotal plus fitting").
			WithDetail("discount", amount).
			WithDetail("base", base)
	}

	return Quote{
		Subtotal:       subtotal,
		FittingPrice:   fitting,
		DiscountAmount: amount,
		Total:          base - amount,
	}, nil
}

func outOfRange(err error) error {
	if errors.Is(err, types.ErrOutOfRange) {
		return apperror.NewValidation("sale amount out of range").WithDetail("max", types.MaxAmount)
	}
	return err
}
