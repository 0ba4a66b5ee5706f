// Package metrics exposes Prometheus collectors for the slot watcher.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotwatcher_checks_total",
			Help: "Total number of polling cycles, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotwatcher_fetch_bytes_total",
			Help: "Total number of page bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotwatcher_fetch_duration_seconds",
			Help:    "Histogram of page fetch latencies, labeled by site.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"site"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotwatcher_notifications_total",
			Help: "Total notification attempts, labeled by channel and result.",
		},
		[]string{"channel", "result"},
	)

	monitorEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slotwatcher_monitor_enabled",
			Help: "1 while notifications are enabled, 0 while paused.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeSite extracts a lowercase hostname from a URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveCheck records one polling cycle.
func ObserveCheck(site, outcome string) {
	checksTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetch records the size and latency of a fetched page.
func ObserveFetch(site string, bytesFetched int, duration time.Duration) {
	sanitized := SanitizeSite(site)
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(sanitized).Observe(duration.Seconds())
}

// ObserveNotification records a single channel delivery attempt.
func ObserveNotification(channel string, delivered bool) {
	result := "failure"
	if delivered {
		result = "success"
	}
	notificationsTotal.WithLabelValues(channel, result).Inc()
}

// SetEnabled mirrors the pause toggle.
func SetEnabled(enabled bool) {
	if enabled {
		monitorEnabled.Set(1)
		return
	}
	monitorEnabled.Set(0)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
