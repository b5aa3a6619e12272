package dto

import (
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/stock"
)

// CreateStockItemRequest is the body of POST /stock.
type CreateStockItemRequest struct {
	Kind      stock.ItemKind   `json:"kind" binding:"required"`
	Name      string           `json:"name" binding:"required"`
	SKU       string           `json:"sku"`
	Quantity  int64            `json:"quantity"`
	UnitPrice types.MinorUnits `json:"unitPrice"`
}

func (r CreateStockItemRequest) Item() *stock.Item {
	return &stock.Item{
		Kind:      r.Kind,
		Name:      r.Name,
		SKU:       r.SKU,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
	}
}

// ReceiveStockRequest is the body of POST /stock/receive.
type ReceiveStockRequest struct {
	Lines []stock.Line `json:"lines"`
}

// StockListQuery filters GET /stock.
type StockListQuery struct {
	ListQuery
	Kind    string `form:"kind"`
	InStock bool   `form:"in_stock"`
}

func (q StockListQuery) ToFilter() (stock.Filter, error) {
	f := stock.Filter{ListFilter: q.Filter(), InStock: q.InStock}
	if q.Kind != "" {
		k := stock.ItemKind(q.Kind)
		if err := k.Validate(); err != nil {
			return f, err
		}
		f.Kind = &k
	}
	return f, nil
}
