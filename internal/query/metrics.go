package query

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tkjaer/ifroute/internal/shared"
	"github.com/tkjaer/ifroute/pkg/fwdtable"
)

// Metrics exposes query results in Prometheus format. A nil *Metrics records
// nothing.
type Metrics struct {
	registry      *prometheus.Registry
	fetchSeconds  prometheus.Histogram
	fetchFailures *prometheus.CounterVec
	tableEntries  prometheus.Gauge
	routePresent  *prometheus.GaugeVec
	routeChanges  *prometheus.CounterVec
	lastQueryTime prometheus.Gauge

	mu            sync.Mutex
	lastRouteHash map[string]string // destination|interface -> route_hash
}

// NewMetrics returns collectors registered on their own registry.
func NewMetrics() *Metrics {
	return newMetricsWithRegistry(prometheus.NewRegistry())
}

func newMetricsWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		fetchSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ifroute_table_fetch_seconds",
				Help:    "Time taken to read and decode the forwarding table",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ifroute_table_fetch_failures_total",
				Help: "Total number of failed forwarding table reads",
			},
			[]string{"reason"},
		),
		tableEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ifroute_table_entries",
				Help: "Number of entries in the most recently read forwarding table",
			},
		),
		routePresent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ifroute_route_present",
				Help: "Whether a route to the destination leaves through the interface (1 = yes, 0 = no, -1 = table unreadable)",
			},
			[]string{"interface", "destination"},
		),
		routeChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ifroute_route_changes_total",
				Help: "Total number of changes in the set of matching routes",
			},
			[]string{"interface", "destination"},
		),
		lastQueryTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ifroute_last_query_timestamp",
				Help: "Timestamp of the last query",
			},
		),
		lastRouteHash: make(map[string]string),
	}

	registry.MustRegister(m.fetchSeconds)
	registry.MustRegister(m.fetchFailures)
	registry.MustRegister(m.tableEntries)
	registry.MustRegister(m.routePresent)
	registry.MustRegister(m.routeChanges)
	registry.MustRegister(m.lastQueryTime)

	return m
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeFetch(elapsed time.Duration, entries int, err error) {
	if m == nil {
		return
	}
	m.fetchSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.fetchFailures.WithLabelValues(failureReason(err)).Inc()
		return
	}
	m.tableEntries.Set(float64(entries))
}

// ObserveRun updates the per-interface gauges from a finished query.
func (m *Metrics) ObserveRun(run *shared.ReportRun) {
	if m == nil || run == nil {
		return
	}
	m.lastQueryTime.Set(float64(run.Timestamp.Unix()))

	for _, ir := range run.Interfaces {
		present := 0.0
		switch ir.Status {
		case shared.StatusFound:
			present = 1
		case shared.StatusFailed:
			present = -1
		}
		m.routePresent.WithLabelValues(ir.Name, run.Destination).Set(present)
		if ir.Status == shared.StatusFailed {
			continue
		}

		// Check for route set changes
		key := run.Destination + "|" + ir.Name
		m.mu.Lock()
		last, exists := m.lastRouteHash[key]
		if exists && last != ir.RouteHash {
			m.routeChanges.WithLabelValues(ir.Name, run.Destination).Inc()
		}
		m.lastRouteHash[key] = ir.RouteHash
		m.mu.Unlock()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, fwdtable.ErrMalformedTable):
		return "malformed"
	case errors.Is(err, fwdtable.ErrRoutingTableUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
