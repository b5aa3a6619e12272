package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/stock"
	"clinicledger/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*stock.Guard, *memory.Store) {
	t.Helper()
	store := memory.New()
	return stock.NewGuard(store.Stock(), store), store
}

func addItem(t *testing.T, g *stock.Guard, kind stock.ItemKind, name string, qty int64, price types.MinorUnits) *stock.Item {
	t.Helper()
	item := &stock.Item{Kind: kind, Name: name, Quantity: qty, UnitPrice: price}
	require.NoError(t, g.Create(context.Background(), item))
	return item
}

func TestReserveAndDecrement_AllLines(t *testing.T) {
	g, store := setup(t)
	frame := addItem(t, g, stock.KindFrame, "Ray frame", 5, types.FromMajor(1200))
	lens := addItem(t, g, stock.KindLens, "Blue-cut lens", 10, types.FromMajor(800))

	items, err := g.ReserveAndDecrement(context.Background(), []stock.Line{
		{ItemID: frame.ID, Quantity: 1},
		{ItemID: lens.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(4), store.Stock().Quantity(frame.ID))
	assert.Equal(t, int64(8), store.Stock().Quantity(lens.ID))
	for _, it := range items {
		assert.Equal(t, store.Stock().Quantity(it.ID), it.Quantity)
	}
}

func TestReserveAndDecrement_MergesDuplicateLines(t *testing.T) {
	g, store := setup(t)
	lens := addItem(t, g, stock.KindLens, "Lens", 3, types.FromMajor(500))

	_, err := g.ReserveAndDecrement(context.Background(), []stock.Line{
		{ItemID: lens.ID, Quantity: 2},
		{ItemID: lens.ID, Quantity: 2},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.Kind(err))
	assert.Equal(t, int64(3), store.Stock().Quantity(lens.ID))

	_, err = g.ReserveAndDecrement(context.Background(), []stock.Line{
		{ItemID: lens.ID, Quantity: 1},
		{ItemID: lens.ID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Zero(t, store.Stock().Quantity(lens.ID))
}

func TestReserveAndDecrement_ShortageIsAllOrNothing(t *testing.T) {
	g, store := setup(t)
	ctx := context.Background()
	frame := addItem(t, g, stock.KindFrame, "Frame", 5, types.FromMajor(1200))
	lens := addItem(t, g, stock.KindLens, "Lens", 1, types.FromMajor(800))
	drops := addItem(t, g, stock.KindMedicine, "Eye drops", 0, types.FromMajor(150))

	_, err := g.ReserveAndDecrement(ctx, []stock.Line{
		{ItemID: frame.ID, Quantity: 2},
		{ItemID: lens.ID, Quantity: 2},
		{ItemID: drops.ID, Quantity: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.Kind(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	shortages, ok := appErr.Details["shortages"].([]stock.Shortage)
	require.True(t, ok)
	assert.Len(t, shortages, 2)

	assert.Equal(t, int64(5), store.Stock().Quantity(frame.ID))
	assert.Equal(t, int64(1), store.Stock().Quantity(lens.ID))
	assert.Zero(t, store.Stock().Quantity(drops.ID))
}

func TestReserveAndDecrement_InvalidLines(t *testing.T) {
	g, _ := setup(t)
	ctx := context.Background()
	frame := addItem(t, g, stock.KindFrame, "Frame", 5, types.FromMajor(1200))

	_, err := g.ReserveAndDecrement(ctx, nil)
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	_, err = g.ReserveAndDecrement(ctx, []stock.Line{{ItemID: frame.ID, Quantity: 0}})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	_, err = g.ReserveAndDecrement(ctx, []stock.Line{{ItemID: id.Nil(), Quantity: 1}})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	_, err = g.ReserveAndDecrement(ctx, []stock.Line{{ItemID: frame.ID, Quantity: 1}, {ItemID: id.New(), Quantity: 1}})
	assert.Equal(t, apperror.KindNotFound, apperror.Kind(err))
}

func TestReceive_Restocks(t *testing.T) {
	g, store := setup(t)
	frame := addItem(t, g, stock.KindFrame, "Frame", 0, types.FromMajor(1200))

	items, err := g.Receive(context.Background(), []stock.Line{{ItemID: frame.ID, Quantity: 7}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].Quantity)
	assert.Equal(t, int64(7), store.Stock().Quantity(frame.ID))
}

func TestCreate_Validation(t *testing.T) {
	g, _ := setup(t)
	ctx := context.Background()

	err := g.Create(ctx, &stock.Item{Kind: "glassware", Name: "Beaker"})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	err = g.Create(ctx, &stock.Item{Kind: stock.KindOther, Name: "Case", Quantity: -1})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))
}

func TestCreate_DuplicateSKU(t *testing.T) {
	g, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, g.Create(ctx, &stock.Item{Kind: stock.KindLens, Name: "SV lens", SKU: "LN-1"}))
	err := g.Create(ctx, &stock.Item{Kind: stock.KindLens, Name: "SV lens copy", SKU: "LN-1"})
	assert.Equal(t, apperror.KindValidation, apperror.Kind(err))

	require.NoError(t, g.Create(ctx, &stock.Item{Kind: stock.KindOther, Name: "Cloth"}))
	require.NoError(t, g.Create(ctx, &stock.Item{Kind: stock.KindOther, Name: "Case"}))
}
