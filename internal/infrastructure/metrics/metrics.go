// Package metrics exposes Prometheus collectors for the HTTP adapter,
// ledger operations and background jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinicledger"

// Metrics holds every collector the binaries export.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	operations   *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	balanceDrift *prometheus.GaugeVec
	outboxRelay  *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by outcome. outcome is ok or the error kind.",
		}, []string{"operation", "outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "conflicts_total",
			Help:      "Retryable database conflicts by cause.",
		}, []string{"cause"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "balance_lookups_total",
			Help:      "Balance cache lookups by result.",
		}, []string{"result"}),
		balanceDrift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "balance_drift_minor_units",
			Help:      "Stored balance minus replayed balance, per account.",
		}, []string{"account"}),
		outboxRelay: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "messages_total",
			Help:      "Outbox messages relayed by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.operations,
		m.conflicts,
		m.cacheLookups,
		m.balanceDrift,
		m.outboxRelay,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Operation counts a ledger operation result. kind is empty on success.
func (m *Metrics) Operation(operation, kind string) {
	if m == nil {
		return
	}
	outcome := kind
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// Conflict counts a retryable database conflict.
func (m *Metrics) Conflict(cause string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(cause).Inc()
}

// CacheLookup counts a balance cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// BalanceDrift sets the last reconciliation drift of an account.
func (m *Metrics) BalanceDrift(account string, drift int64) {
	if m == nil {
		return
	}
	m.balanceDrift.WithLabelValues(account).Set(float64(drift))
}

// OutboxRelayed counts relayed outbox messages.
func (m *Metrics) OutboxRelayed(ok bool, n int) {
	if m == nil || n == 0 {
		return
	}
	result := "published"
	if !ok {
		result = "failed"
	}
	m.outboxRelay.WithLabelValues(result).Add(float64(n))
}
