package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-wide collectors. Registered on the default registry so the
// promhttp handler picks them up without extra wiring.
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signal_engine_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	UpstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_upstream_fetches_total",
		Help: "Candle/ticker upstream calls by source and outcome.",
	}, []string{"source", "outcome"})

	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_engine_fallbacks_total",
		Help: "Times the secondary candle source served a request.",
	})

	SyntheticTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_engine_synthetic_series_total",
		Help: "Times synthetic candles were generated after all sources failed.",
	})

	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signal_engine_scans_total",
		Help: "Completed scanner cycles.",
	})

	SignalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_engine_signals_total",
		Help: "Signals emitted by strategy and validity.",
	}, []string{"strategy", "valid"})
)

// GinMiddleware records request latency per route
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for the /metrics route
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
