package memory

import (
	"context"
	"sort"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct{ s *Store }

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) Create(ctx context.Context, item *stock.Item) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.items[item.ID]; ok {
			return apperror.NewValidation("stock item already exists").WithDetail("id", item.ID)
		}
		if item.SKU != "" {
			for _, other := range st.items {
				if other.SKU == item.SKU {
					return apperror.NewValidation("duplicate sku").WithDetail("sku", item.SKU)
				}
			}
		}
		if item.Version == 0 {
			item.Version = 1
		}
		st.items[item.ID] = *item
		return nil
	})
}

func (r *StockRepo) GetByID(ctx context.Context, itemID id.ID) (*stock.Item, error) {
	var out *stock.Item
	err := r.s.with(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound("stock_item", itemID)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *StockRepo) LockMany(ctx context.Context, ids []id.ID) ([]stock.Item, error) {
	var out []stock.Item
	err := r.s.with(ctx, func(st *state) error {
		for _, itemID := range ids {
			if it, ok := st.items[itemID]; ok {
				out = append(out, it)
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) SetQuantity(ctx context.Context, itemID id.ID, quantity int64, expectedVersion int) error {
	return r.s.with(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound("stock_item", itemID)
		}
		if it.Version != expectedVersion {
			return versionConflict("stock_item", itemID, expectedVersion, it.Version)
		}
		if quantity < 0 {
			return apperror.NewInsufficientStock("stock quantity cannot go below zero").
				WithDetail("item_id", itemID)
		}
		it.Quantity = quantity
		it.Version++
		it.UpdatedAt = time.Now().UTC()
		st.items[itemID] = it
		return nil
	})
}

func (r *StockRepo) List(ctx context.Context, f stock.Filter) (domain.ListResult[stock.Item], error) {
	var matched []stock.Item
	err := r.s.with(ctx, func(st *state) error {
		for _, it := range st.items {
			if f.Kind != nil && it.Kind != *f.Kind {
				continue
			}
			if f.InStock && it.Quantity == 0 {
				continue
			}
			matched = append(matched, it)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[stock.Item]{}, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return domain.Page(matched, f.ListFilter), nil
}

// Quantity returns the stored quantity of an item, or -1 if it does not exist.
func (r *StockRepo) Quantity(itemID id.ID) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.state.items[itemID]
	if !ok {
		return -1
	}
	return it.Quantity
}
