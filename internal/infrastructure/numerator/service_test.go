package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "clinicledger/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences keyed by sequence key.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string)
	switch {
	case len(args) == 1:
		m.values[key]++
	case strings.Contains(sql, "current_val + $2"):
		m.values[key] += args[1].(int64)
	default:
		m.values[key] = args[1].(int64)
	}
	return &mockRow{val: m.values[key]}
}

var period = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("HOS-TX")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "HOS-TX-2024-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "HOS-TX-2024-00002", num)

	// other scope starts from 1
	num, err = svc.GetNextNumber(ctx, corenumerator.DefaultConfig("MED-TX"), nil, period)
	require.NoError(t, err)
	assert.Equal(t, "MED-TX-2024-00001", num)

	// new year resets
	num, err = svc.GetNextNumber(ctx, cfg, nil, period.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "HOS-TX-2025-00001", num)
}

func TestGetNextNumber_StrictConcurrentUnique(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.DefaultConfig("INV-OPT")

	const workers = 50
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(context.Background(), cfg, nil, period)
			if assert.NoError(t, err) {
				results <- num
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for num := range results {
		assert.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, workers)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2024-00001", num)
	assert.Equal(t, int64(10), q.values["ORD_2024"])

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2024-00002", num)
	assert.Equal(t, 1, q.calls, "second number must come from memory")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2024-00011", num)
	assert.Equal(t, int64(20), q.values["ORD_2024"])
}

func TestSetNextNumber(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("HOS-FV")

	require.NoError(t, svc.SetNextNumber(ctx, cfg, period, 99))

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "HOS-FV-2024-00100", num)

	assert.Error(t, svc.SetNextNumber(ctx, cfg, period, -1))
}

func TestGetNextNumber_Errors(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("X"), nil, period)
	assert.ErrorContains(t, err, "connection reset")

	_, err = svc.GetNextNumber(context.Background(), corenumerator.Config{}, nil, period)
	assert.ErrorContains(t, err, "prefix")
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("HOS-TX-2024-00042"))
	assert.Equal(t, int64(7), ParseNumber("INV-00007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("INV-abc"))
}
