// Package metrics holds the Prometheus collectors of the bot.
// Metric names carry the moviebot_ prefix.
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
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultError   = "error"
	ResultOK      = "ok"
	ResultInvalid = "invalid"
)

var (
	// Lookups counts catalog lookups by operation (one, many, key) and result.
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_catalog_lookups_total",
			Help: "Catalog lookups by operation and result",
		},
		[]string{"op", "result"},
	)

	Ingestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_catalog_ingestions_total",
			Help: "Admin catalog ingestions by result",
		},
		[]string{"result"},
	)

	// Updates counts inbound Telegram updates by kind.
	Updates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_updates_total",
			Help: "Inbound updates by kind",
		},
		[]string{"kind"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_media_deliveries_total",
			Help: "Media file deliveries by result",
		},
		[]string{"result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviebot_searches_rate_limited_total",
			Help: "Searches rejected by the per-user rate limiter",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviebot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration per path.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
