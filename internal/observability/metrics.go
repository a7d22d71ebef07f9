package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests processed by the portal.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	chatsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_chats_open",
			Help: "Number of chats currently polling the backend.",
		},
	)
	chatPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_chat_polls_total",
			Help: "Total number of chat poll ticks.",
		},
	)
	chatPollErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_chat_poll_errors_total",
			Help: "Total number of chat polls that failed and were skipped.",
		},
	)
	chatSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_chat_sends_total",
			Help: "Total number of chat sends by outcome.",
		},
		[]string{"outcome"},
	)
	unreadUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_unread_updates_total",
			Help: "Total number of unread summary replacements by source.",
		},
		[]string{"source"},
	)
	bookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_bookings_total",
			Help: "Total number of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		chatsOpen,
		chatPollsTotal,
		chatPollErrorsTotal,
		chatSendsTotal,
		unreadUpdatesTotal,
		bookingsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func SetChatsOpen(n int) {
	chatsOpen.Set(float64(n))
}

func IncChatPoll() {
	chatPollsTotal.Inc()
}

func IncChatPollError() {
	chatPollErrorsTotal.Inc()
}

func IncChatSend(outcome string) {
	chatSendsTotal.WithLabelValues(outcome).Inc()
}

func IncUnreadUpdate(source string) {
	unreadUpdatesTotal.WithLabelValues(source).Inc()
}

func IncBooking(outcome string) {
	bookingsTotal.WithLabelValues(outcome).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
