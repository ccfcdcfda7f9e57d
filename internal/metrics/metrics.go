package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelit_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain activity
	EventsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_analytics_events_total",
			Help: "Analytics events recorded by type and outcome",
		},
		[]string{"event_type", "result"},
	)

	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_points_awarded_total",
			Help: "Gamification points credited by activity type",
		},
		[]string{"activity_type"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "labelit_upload_bytes",
			Help:    "Size of stored images after compression",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
	)

	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_exports_total",
			Help: "Exports generated by format and outcome",
		},
		[]string{"format", "result"},
	)

	// Cache
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_cache_requests_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_cache_invalidations_total",
			Help: "Full cache invalidations",
		},
		[]string{"cache"},
	)

	// Geolocation
	GeolocationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelit_geolocation_lookups_total",
			Help: "Geolocation calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelit_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Middleware records request counts and latency by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
