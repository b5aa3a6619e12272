package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Operation("fund_out", "")
	m.Operation("fund_out", "InsufficientBalance")
	m.Operation("fund_out", "InsufficientBalance")
	m.Conflict("lock_not_available")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.BalanceDrift("main", -150)
	m.OutboxRelayed(true, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("fund_out", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("fund_out", "InsufficientBalance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("lock_not_available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, -150.0, testutil.ToFloat64(m.balanceDrift.WithLabelValues("main")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.outboxRelay.WithLabelValues("published")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("sale_create", "")
		m.Conflict("deadlock_detected")
		m.ObserveHTTP("GET", "/api/v1/accounts", 200, time.Millisecond)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "/api/v1/sales", 201, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `clinicledger_http_requests_total{method="POST",route="/api/v1/sales",status="201"} 1`))
}
