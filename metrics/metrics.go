// Package metrics exposes Prometheus metrics for dataset refreshes and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the prefix of every metric name.
	Namespace = "listen_history"
)

// Metrics holds the registered collectors.
type Metrics struct {
	// Refresh metrics
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	RowsDropped     prometheus.Counter
	DatasetRows     prometheus.Gauge
	LastRefresh     prometheus.Gauge

	// API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Summary cache metrics
	SummaryCacheHits   prometheus.Counter
	SummaryCacheMisses prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on reg. A nil reg gets a private
// registry so tests and repeated construction do not collide.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.initRefreshMetrics(factory)
	m.initAPIMetrics(factory)
	m.initCacheMetrics(factory)

	return m
}

func (m *Metrics) initRefreshMetrics(factory promauto.Factory) {
	m.RefreshesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refreshes_total",
			Help:      "Dataset refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.RefreshDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching and processing the sheets",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~51s
		},
	)

	m.RowsDropped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows discarded because their date could not be parsed",
		},
	)

	m.DatasetRows = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "dataset_rows",
			Help:      "Number of listens in the current dataset",
		},
	)

	m.LastRefresh = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh",
		},
	)
}

func (m *Metrics) initAPIMetrics(factory promauto.Factory) {
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route"},
	)
}

func (m *Metrics) initCacheMetrics(factory promauto.Factory) {
	m.SummaryCacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "summary_cache_hits_total",
			Help:      "Summary requests served from cache",
		},
	)

	m.SummaryCacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "summary_cache_misses_total",
			Help:      "Summary requests computed from the dataset",
		},
	)
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(outcome string, duration time.Duration, rows, dropped int) {
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(duration.Seconds())
	if dropped > 0 {
		m.RowsDropped.Add(float64(dropped))
	}
	if outcome == "refreshed" {
		m.DatasetRows.Set(float64(rows))
		m.LastRefresh.SetToCurrentTime()
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveSummaryCache counts a summary cache lookup.
func (m *Metrics) ObserveSummaryCache(hit bool) {
	if hit {
		m.SummaryCacheHits.Inc()
		return
	}
	m.SummaryCacheMisses.Inc()
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
