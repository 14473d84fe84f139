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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 签到结果：created / duplicate / rejected / failed
	CheckinCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_checkins_total",
			Help: "Workshop check-in attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_xp_awarded_total",
			Help: "Experience points credited by source",
		},
		[]string{"source"},
	)

	LevelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_level_ups_total",
			Help: "Number of level-up events",
		},
	)

	BadgesGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_granted_total",
			Help: "Badges granted by name",
		},
		[]string{"badge"},
	)

	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notifications that could not be delivered",
		},
		[]string{"type", "stage"},
	)

	NotificationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Pending notifications in the dispatch queue",
		},
	)

	NotificationSockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_ws_connections",
			Help: "Open notification WebSocket connections",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			CheckinCounter,
			XPAwarded,
			LevelUps,
			BadgesGranted,
			NotificationFailures,
			NotificationQueueDepth,
			NotificationSockets,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
