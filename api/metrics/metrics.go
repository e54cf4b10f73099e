package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stridelake_api"

// Reasons a chat request is rejected before reaching a retriever.
const (
	RejectInvalidBody    = "invalid_body"
	RejectEmptyMessage   = "empty_message"
	RejectInvalidHistory = "invalid_history"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Version, commit and build date of the running API server",
	}, []string{"version", "commit", "date"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status code",
	}, []string{"method", "route", "code"})

	// Chat questions can spend several model calls and retry waits, so the buckets reach two minutes.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern",
		Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 15, 30, 60, 120},
	}, []string{"method", "route"})

	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	ChatReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_replies_total",
		Help:      "Chat replies by retriever route and TAG outcome",
	}, []string{"route", "outcome"})

	ChatRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_rejected_total",
		Help:      "Chat requests rejected with 400 before answering",
	}, []string{"reason"})
)

// RecordChatReply counts a chat reply. Basic replies carry no TAG outcome and are recorded as "none".
func RecordChatReply(route, outcome string) {
	if outcome == "" {
		outcome = "none"
	}
	ChatReplies.WithLabelValues(route, outcome).Inc()
}

// Middleware records request counts and latencies labelled by chi route pattern. Unmatched requests
// share the "unmatched" route so arbitrary paths cannot grow label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		Requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
