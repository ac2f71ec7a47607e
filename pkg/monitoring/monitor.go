package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"method", "endpoint"},
	)

	// InteractionOutcomes outcome=answered|pending, reason=fallback 原因或 none
	InteractionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_outcomes_total",
			Help: "Resolved user requests by outcome and fallback reason",
		},
		[]string{"outcome", "reason"},
	)

	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Latency of transcription, retrieval and generation calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "result"},
	)

	NotificationClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_clients",
			Help: "Connected dashboard websocket clients",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(InteractionOutcomes)
		prometheus.MustRegister(ProviderDuration)
		prometheus.MustRegister(NotificationClients)
	})
}

// ObserveProvider 记录一次外部调用的耗时
func ObserveProvider(provider string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderDuration.WithLabelValues(provider, result).Observe(time.Since(start).Seconds())
}

func ObserveOutcome(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	InteractionOutcomes.WithLabelValues(outcome, reason).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
