package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/regionlatency/internal/aggregate"
)

const metricsNamespace = "regionlatency"

// metrics holds the collectors exposed on GET /metrics. Each Handler owns a
// private registry so several handlers can coexist in one process (tests).
type metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	queryDuration prometheus.Histogram
	regionQueries *prometheus.CounterVec
	records       *prometheus.GaugeVec
}

func newMetrics(agg *aggregate.Aggregator) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by route pattern, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_compute_seconds",
			Help:      "Time spent computing region metrics for one query.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		regionQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "region_queries_total",
				Help:      "Times each known region was included in a query result.",
			},
			[]string{"region"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "telemetry_records",
				Help:      "Telemetry records loaded at startup, per region.",
			},
			[]string{"region"},
		),
	}

	m.registry.MustRegister(m.requests, m.queryDuration, m.regionQueries, m.records)

	for _, region := range agg.Regions() {
		m.records.WithLabelValues(region).Set(float64(agg.RecordCount(region)))
		// Pre-create so every region is exported from the first scrape.
		m.regionQueries.WithLabelValues(region)
	}
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeRequest(route, method string, status int) {
	m.requests.WithLabelValues(route, normalizeMethod(method), strconv.Itoa(status)).Inc()
}

// observeQuery records one computed query. Only regions present in the result
// are counted, which keeps the label set bounded by the table.
func (m *metrics) observeQuery(d time.Duration, res aggregate.Result) {
	m.queryDuration.Observe(d.Seconds())
	for region := range res {
		m.regionQueries.WithLabelValues(region).Inc()
	}
}

// normalizeMethod folds non-standard methods into one label value.
func normalizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}
