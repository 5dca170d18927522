package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Live layer
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mchat_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mchat_online_users",
			Help: "Users with at least one live connection",
		},
	)

	DroppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mchat_ws_dropped_events_total",
			Help: "Outbound events dropped because a client send buffer was full",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mchat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"chat_kind"}, // "global" or "private"
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mchat_notifications_total",
			Help: "External notifications by channel and result",
		},
		[]string{"channel", "result"}, // channel: push|bot, result: sent|failed|gone|suppressed
	)

	CallSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mchat_call_signals_total",
			Help: "Relayed call signaling messages",
		},
		[]string{"kind"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mchat_store_latency_seconds",
			Help:    "Durable store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)
)

// ObserveStore замеряет длительность операции с БД
func ObserveStore(operation string, start time.Time) {
	StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
