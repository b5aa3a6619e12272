package sale_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/core/id"
	"clinicledger/internal/infrastructure/storage/postgres"
)

func TestSaleColumns_SkipChildren(t *testing.T) {
	assert.Contains(t, saleColumns, "invoice_no")
	assert.Contains(t, saleColumns, "due_amount")
	assert.NotContains(t, saleColumns, "items")
	assert.NotContains(t, saleColumns, "payments")
	assert.Equal(t, []string{"sale_id", "line_no", "stock_item_id", "name", "quantity", "unit_price", "amount"}, saleItemColumns)
}

func TestLockMany_SQL(t *testing.T) {
	ids := []id.ID{id.New(), id.New()}
	sql, args, err := postgres.Builder().
		Select("id").
		From("stock_items").
		Where("id = ANY(?)", ids).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM stock_items WHERE id = ANY($1) ORDER BY id FOR UPDATE", sql)
	assert.Equal(t, []any{ids}, args)
}
