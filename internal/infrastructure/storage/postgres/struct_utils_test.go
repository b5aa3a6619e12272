package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
)

type RowMeta struct {
	ID      id.ID `db:"id"`
	Version int   `db:"version"`
}

type voucherRow struct {
	RowMeta
	VoucherNo string           `db:"voucher_no"`
	Amount    types.MinorUnits `db:"amount"`
	Date      time.Time        `db:"transfer_date"`
	Lines     []string         `db:"-"`
	scratch   string
}

func TestExtractDBColumns_EmbeddedFirst(t *testing.T) {
	cols := ExtractDBColumns[voucherRow]()
	assert.Equal(t, []string{"id", "version", "voucher_no", "amount", "transfer_date"}, cols)
}

func TestExtractDBColumns_Pointer(t *testing.T) {
	assert.Equal(t, ExtractDBColumns[voucherRow](), ExtractDBColumns[*voucherRow]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := &voucherRow{
		RowMeta:   RowMeta{ID: id.New(), Version: 3},
		VoucherNo: "OPT-FV-2026-00001",
		Amount:    types.FromMajor(500),
		Date:      now,
		Lines:     []string{"ignored"},
		scratch:   "ignored",
	}

	m := StructToMap(row)

	assert.Len(t, m, 5)
	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "OPT-FV-2026-00001", m["voucher_no"])
	assert.Equal(t, types.FromMajor(500), m["amount"])
	assert.Equal(t, now, m["transfer_date"])
	assert.NotContains(t, m, "-")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
