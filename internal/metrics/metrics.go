// Package metrics provides Prometheus metrics for chimera.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chimera"

var (
	// BacktestTotal counts backtest runs by outcome.
	BacktestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_total",
			Help:      "Total number of backtest runs",
		},
		[]string{"status"},
	)

	// BacktestDuration measures backtest pipeline duration.
	BacktestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backtest_duration_seconds",
			Help:      "Duration of backtest runs in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// CacheLookups counts backtest cache lookups by result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_cache_lookups_total",
			Help:      "Backtest cache lookups",
		},
		[]string{"result"},
	)

	// CorpusVideos tracks the number of videos in the active corpus.
	CorpusVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_videos",
			Help:      "Number of videos in the active corpus",
		},
	)

	// CorpusReloads counts corpus reloads by outcome.
	CorpusReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_reloads_total",
			Help:      "Total number of corpus reloads",
		},
		[]string{"status"},
	)

	// HTTPRequests counts HTTP requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	// HTTPDuration measures HTTP request duration.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordBacktest records one backtest run.
func RecordBacktest(status string, seconds float64) {
	BacktestTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordCorpusReload records a reload and, on success, the new corpus size.
func RecordCorpusReload(err error, videos int) {
	if err != nil {
		CorpusReloads.WithLabelValues("error").Inc()
		return
	}
	CorpusReloads.WithLabelValues("ok").Inc()
	CorpusVideos.Set(float64(videos))
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, code string, seconds float64) {
	HTTPRequests.WithLabelValues(method, route, code).Inc()
	HTTPDuration.WithLabelValues(route).Observe(seconds)
}
