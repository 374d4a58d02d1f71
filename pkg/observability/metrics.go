package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access decision metrics
	AccessDecisionsTotal   *prometheus.CounterVec
	AccessDecisionDuration *prometheus.HistogramVec

	// Plan gate metrics
	PlanDenialsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	DiagramsTotal       prometheus.Gauge
	TeamsTotal          prometheus.Gauge
	ActiveSubscriptions prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layr_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "layr_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layr_access_decisions_total",
				Help: "Total number of diagram access decisions",
			},
			[]string{"outcome", "rule"},
		),
		AccessDecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "layr_access_decision_duration_seconds",
				Help:    "Diagram access decision duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		PlanDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layr_plan_denials_total",
				Help: "Total number of free-plan quota denials",
			},
			[]string{"quota"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layr_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layr_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DiagramsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layr_diagrams_total",
				Help: "Total number of diagrams",
			},
		),
		TeamsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layr_teams_total",
				Help: "Total number of teams",
			},
		),
		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "layr_active_subscriptions",
				Help: "Number of currently active subscriptions",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDecisionsTotal,
		m.AccessDecisionDuration,
		m.PlanDenialsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DiagramsTotal,
		m.TeamsTotal,
		m.ActiveSubscriptions,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// ObserveAccessDecision records one access decision.
func (m *Metrics) ObserveAccessDecision(outcome, rule string, duration time.Duration) {
	m.AccessDecisionsTotal.WithLabelValues(outcome, rule).Inc()
	m.AccessDecisionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
