package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request counter by endpoint and status
	httpRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfloor_http_requests_total",
			Help: "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopfloor_http_request_duration_seconds",
			Help:    "HTTP request latency by endpoint and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestCounter,
		httpRequestDuration,
	)
}

// Metrics records request counters and latency for every route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		endpoint := c.Route().Path
		httpRequestCounter.WithLabelValues(endpoint, c.Method(), strconv.Itoa(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(endpoint, c.Method()).Observe(time.Since(start).Seconds())
		return err
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
