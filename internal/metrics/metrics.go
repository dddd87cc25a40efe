// Package metrics provides Prometheus instrumentation for the aura engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts total trades executed, partitioned by type.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aura_trades_total",
		Help: "Total number of trades executed",
	}, []string{"trade_type"})

	// TradeLatency is a histogram of trade execution latency.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aura_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"trade_type"})

	// TradeRejections counts trades rejected before mutation, by reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aura_trade_rejections_total",
		Help: "Trades rejected before any state mutation",
	}, []string{"reason"})

	// ScoreUpdatesTotal counts scoring-path ledger updates.
	ScoreUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_score_updates_total",
		Help: "Total number of aura score updates applied",
	})

	// UpdateCycleFailures counts per-personality failures inside the
	// scheduled momentum update pass.
	UpdateCycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aura_update_cycle_failures_total",
		Help: "Personalities that failed during a momentum update pass",
	})

	// UpdateCycleDuration tracks full momentum pass duration.
	UpdateCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aura_update_cycle_duration_seconds",
		Help:    "Duration of a full momentum update pass",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// ParlaysTotal counts created parlays by status.
	ParlaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aura_parlays_total",
		Help: "Total number of parlays created",
	}, []string{"status"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aura_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aura_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aura_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; route cardinality is low.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
