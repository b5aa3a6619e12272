package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicledger/internal/domain"
)

func TestDateRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   domain.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no bounds",
			wantSQL: "SELECT id FROM journal_entries",
		},
		{
			name:     "from only",
			filter:   domain.ListFilter{DateFrom: &from},
			wantSQL:  "SELECT id FROM journal_entries WHERE entry_date >= $1",
			wantArgs: []any{from},
		},
		{
			name:     "both bounds",
			filter:   domain.ListFilter{DateFrom: &from, DateTo: &to},
			wantSQL:  "SELECT id FROM journal_entries WHERE entry_date >= $1 AND entry_date <= $2",
			wantArgs: []any{from, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := DateRange(Builder().Select("id").From("journal_entries"), tt.filter, "entry_date")
			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, len(tt.wantArgs), len(args))
			for i := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[i], args[i])
			}
		})
	}
}

func TestBuilder_DollarPlaceholders(t *testing.T) {
	sql, _, err := Builder().
		Update("accounts").
		Set("balance", 10).
		Where("id = ? AND version = ?", "x", 1).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE accounts SET balance = $1 WHERE id = $2 AND version = $3", sql)
}
