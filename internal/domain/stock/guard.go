package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain"
	"clinicledger/pkg/logger"
)

var tracer = otel.Tracer("clinicledger/stock")

// Guard checks and moves stock quantities. Transactions are joined from the
// caller (the sale engine) when one is open.
type Guard struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewGuard creates a new stock guard.
func NewGuard(repo Repository, txManager tx.Manager) *Guard {
	return &Guard{
		repo:      repo,
		txManager: txManager,
		now:       time.Now,
	}
}

// ReserveAndDecrement locks every requested item and decrements all of them,
// or none. A shortage on any line fails the batch with InsufficientStock
// listing every short line. It returns the items after decrement in id order.
func (g *Guard) ReserveAndDecrement(ctx context.Context, lines []Line) ([]Item, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "stock.reserve_and_decrement")
	defer span.End()
	span.SetAttributes(attribute.Int("stock.lines", len(merged)))

	var out []Item
	err = g.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := g.lock(ctx, merged)
		if err != nil {
			return err
		}

		var shortages []Shortage
		for i, l := range merged {
			if items[i].Quantity < l.Quantity {
				shortages = append(shortages, Shortage{
					ItemID:    l.ItemID,
					Requested: l.Quantity,
					Available: items[i].Quantity,
				})
			}
		}
		if len(shortages) > 0 {
			return insufficientStock(shortages, items)
		}

		now := g.now().UTC()
		for i, l := range merged {
			next := items[i].Quantity - l.Quantity
			if err := g.repo.SetQuantity(ctx, l.ItemID, next, items[i].Version); err != nil {
				return fmt.Errorf("decrement %s: %w", l.ItemID, err)
			}
			items[i].Quantity = next
			items[i].Version++
			items[i].UpdatedAt = now
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "stock decremented", "lines", len(merged))
	return out, nil
}

// Receive adds quantities back to stock.
func (g *Guard) Receive(ctx context.Context, lines []Line) ([]Item, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var out []Item
	err = g.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		items, err := g.lock(ctx, merged)
		if err != nil {
			return err
		}
		now := g.now().UTC()
		for i, l := range merged {
			next := items[i].Quantity + l.Quantity
			if err := g.repo.SetQuantity(ctx, l.ItemID, next, items[i].Version); err != nil {
				return fmt.Errorf("receive %s: %w", l.ItemID, err)
			}
			items[i].Quantity = next
			items[i].Version++
			items[i].UpdatedAt = now
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock received", "lines", len(merged))
	return out, nil
}

// Create registers a new item.
func (g *Guard) Create(ctx context.Context, item *Item) error {
	if id.IsNil(item.ID) {
		item.ID = id.New()
	}
	item.Name = strings.TrimSpace(item.Name)
	if err := item.Validate(); err != nil {
		return err
	}
	item.UpdatedAt = g.now().UTC()
	if err := g.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return g.repo.Create(ctx, item)
	}); err != nil {
		return err
	}
	logger.Info(ctx, "stock item created", "id", item.ID, "name", item.Name, "quantity", item.Quantity)
	return nil
}

// Get returns an item.
func (g *Guard) Get(ctx context.Context, itemID id.ID) (*Item, error) {
	return g.repo.GetByID(ctx, itemID)
}

// List returns items matching the filter.
func (g *Guard) List(ctx context.Context, f Filter) (domain.ListResult[Item], error) {
	f.ListFilter = f.ListFilter.Normalize()
	return g.repo.List(ctx, f)
}

// lock takes row locks for merged lines and returns items aligned with them.
func (g *Guard) lock(ctx context.Context, merged []Line) ([]Item, error) {
	ids := make([]id.ID, len(merged))
	for i, l := range merged {
		ids[i] = l.ItemID
	}
	locked, err := g.repo.LockMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock stock items: %w", err)
	}

	byID := make(map[id.ID]Item, len(locked))
	for _, it := range locked {
		byID[it.ID] = it
	}
	items := make([]Item, len(merged))
	for i, l := range merged {
		it, ok := byID[l.ItemID]
		if !ok {
			return nil, apperror.NewNotFound("stock_item", l.ItemID)
		}
		items[i] = it
	}
	return items, nil
}

// mergeLines validates lines, sums duplicates and sorts by item id.
func mergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one stock line is required").WithDetail("field", "items")
	}
	totals := make(map[id.ID]int64, len(lines))
	for i, l := range lines {
		if id.IsNil(l.ItemID) {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: item id is required", i+1)).
				WithDetail("line", i+1)
		}
		if l.Quantity <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1)).
				WithDetail("line", i+1)
		}
		totals[l.ItemID] += l.Quantity
	}

	ids := make([]id.ID, 0, len(totals))
	for itemID := range totals {
		ids = append(ids, itemID)
	}
	id.Sort(ids)

	merged := make([]Line, len(ids))
	for i, itemID := range ids {
		merged[i] = Line{ItemID: itemID, Quantity: totals[itemID]}
	}
	return merged, nil
}

func insufficientStock(shortages []Shortage, items []Item) error {
	names := make(map[id.ID]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}
	parts := make([]string, len(shortages))
	for i, s := range shortages {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", names[s.ItemID], s.Requested, s.Available)
	}
	return apperror.NewInsufficientStock("insufficient stock for "+strings.Join(parts, "; ")).
		WithDetail("shortages", shortages)
}
