// Package sale_repo provides PostgreSQL implementations of the stock and
// sale repositories.
package sale_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/stock"
	"clinicledger/internal/infrastructure/storage/postgres"
)

var itemColumns = postgres.ExtractDBColumns[stock.Item]()

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm *postgres.TxManager
}

var _ stock.Repository = (*StockRepo)(nil)

func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{txm: txm}
}

func (r *StockRepo) Create(ctx context.Context, item *stock.Item) error {
	if item.Version == 0 {
		item.Version = 1
	}
	err := postgres.Insert(ctx, r.txm.GetQuerier(ctx), "stock_items", item)
	if postgres.IsUniqueViolation(err, "stock_items_sku_key") {
		return apperror.NewValidation("duplicate sku").WithDetail("sku", item.SKU)
	}
	return err
}

func (r *StockRepo) GetByID(ctx context.Context, itemID id.ID) (*stock.Item, error) {
	sql, args, err := postgres.Builder().
		Select(itemColumns...).
		From("stock_items").
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var item stock.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_item", itemID)
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return &item, nil
}

// LockMany locks the rows in id order so concurrent sales over overlapping
// items queue instead of deadlocking.
func (r *StockRepo) LockMany(ctx context.Context, ids []id.ID) ([]stock.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := postgres.Builder().
		Select(itemColumns...).
		From("stock_items").
		Where("id = ANY(?)", ids).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []stock.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("lock stock items: %w", err)
	}
	return out, nil
}

func (r *StockRepo) SetQuantity(ctx context.Context, itemID id.ID, quantity int64, expectedVersion int) error {
	sql, args, err := postgres.Builder().
		Update("stock_items").
		Set("quantity", quantity).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": itemID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err, "stock_items_quantity_check") {
			return apperror.NewInsufficientStock("stock quantity cannot go below zero").
				WithDetail("item_id", itemID)
		}
		return fmt.Errorf("update stock quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, itemID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("stock_item", itemID).
			WithDetail("expected_version", expectedVersion)
	}
	return nil
}

func (r *StockRepo) List(ctx context.Context, f stock.Filter) (domain.ListResult[stock.Item], error) {
	q := postgres.Builder().Select().From("stock_items")
	if f.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *f.Kind})
	}
	if f.InStock {
		q = q.Where(squirrel.Gt{"quantity": 0})
	}
	return postgres.SelectPage[stock.Item](ctx, r.txm.GetQuerier(ctx), q, itemColumns, f.ListFilter,
		"name", "id")
}
