package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Message writes by action and result",
		},
		[]string{"action", "result"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"action"},
	)

	bestEffortDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_best_effort_dropped_total",
			Help: "Presence and typing writes that failed and were dropped",
		},
		[]string{"action"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Open WebSocket connections",
		},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Chat sessions between Start and End",
		},
	)
)

func RecordMessage(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	messagesTotal.WithLabelValues(action, result).Inc()
}

func RecordRateLimited(action string) {
	rateLimitedTotal.WithLabelValues(action).Inc()
}

func RecordBestEffortDropped(action string) {
	bestEffortDroppedTotal.WithLabelValues(action).Inc()
}

func ConnectionOpened() {
	wsConnections.Inc()
}

func ConnectionClosed() {
	wsConnections.Dec()
}

func SessionStarted() {
	sessionsActive.Inc()
}

func SessionEnded() {
	sessionsActive.Dec()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
