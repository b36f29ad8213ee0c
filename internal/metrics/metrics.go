// Package metrics provides Prometheus metrics for the binder server.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokebinder_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Price Refresh Metrics
	PriceRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_price_refresh_total",
			Help: "Card price refreshes by result",
		},
		[]string{"result"}, // "updated", "variant_missing", "failed"
	)

	PriceUpdatesToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokebinder_price_updates_today",
			Help: "Number of card prices updated today (resets at midnight)",
		},
	)

	PriceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokebinder_price_batch_duration_seconds",
			Help:    "Time taken to refresh every collection",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	// Catalog API Metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_catalog_requests_total",
			Help: "Total number of catalog API requests made",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokebinder_catalog_request_duration_seconds",
			Help:    "Catalog API call latency, including rate limiter wait",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_catalog_cache_hits_total",
			Help: "Catalog cache hit count",
		},
		[]string{"cache"}, // "card", "sets"
	)

	CatalogCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_catalog_cache_misses_total",
			Help: "Catalog cache miss count",
		},
		[]string{"cache"},
	)

	// Collection Metrics
	CollectionMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_collection_mutations_total",
			Help: "Collection mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	CollectionCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokebinder_collection_cards_total",
			Help: "Number of cards across all collections at the last snapshot run",
		},
	)

	CollectionValueUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pokebinder_collection_value_usd",
			Help: "Value in USD across all collections at the last snapshot run",
		},
		[]string{"binder"}, // "all", "prize", "elite"
	)

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_value_snapshots_total",
			Help: "Collection value snapshots by result",
		},
		[]string{"result"},
	)
)

// Result labels an outcome for counters that split on success.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// GinMiddleware records request count and latency by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
