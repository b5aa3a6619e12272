// Package stock guards sellable inventory quantities.
package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain"
)

// ItemKind classifies sellable items.
type ItemKind string

const (
	KindFrame           ItemKind = "frame"
	KindLens            ItemKind = "lens"
	KindCompleteGlasses ItemKind = "complete_glasses"
	KindMedicine        ItemKind = "medicine"
	KindOther           ItemKind = "other"
)

// Validate checks that k is a known item kind.
func (k ItemKind) Validate() error {
	switch k {
	case KindFrame, KindLens, KindCompleteGlasses, KindMedicine, KindOther:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown item kind %q", string(k))).
			WithDetail("field", "kind")
	}
}

// Item is a stock row. Quantity never goes below zero.
type Item struct {
	ID        id.ID            `db:"id" json:"id"`
	Kind      ItemKind         `db:"kind" json:"kind"`
	Name      string           `db:"name" json:"name"`
	SKU       string           `db:"sku" json:"sku"`
	Quantity  int64            `db:"quantity" json:"quantity"`
	UnitPrice types.MinorUnits `db:"unit_price" json:"unitPrice"`
	Version   int              `db:"version" json:"version"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// Validate checks the item fields.
func (i *Item) Validate() error {
	if err := i.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("item name is required").WithDetail("field", "name")
	}
	if i.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	if i.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if i.UnitPrice > types.MaxAmount {
		return apperror.NewValidation("unit price out of range").WithDetail("field", "unitPrice")
	}
	return nil
}

// Line requests a quantity of one item.
type Line struct {
	ItemID   id.ID `json:"itemId"`
	Quantity int64 `json:"quantity"`
}

// Shortage describes a line that cannot be served.
type Shortage struct {
	ItemID    id.ID `json:"itemId"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
}

// Filter narrows item listings.
type Filter struct {
	domain.ListFilter
	Kind    *ItemKind
	InStock bool
}

// Repository persists stock items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// LockMany returns the items with row locks taken in id order.
	// ids must be sorted and unique. Missing ids are not returned.
	LockMany(ctx context.Context, ids []id.ID) ([]Item, error)

	// SetQuantity stores the quantity if the row still has expectedVersion.
	SetQuantity(ctx context.Context, itemID id.ID, quantity int64, expectedVersion int) error

	List(ctx context.Context, f Filter) (domain.ListResult[Item], error)
}
