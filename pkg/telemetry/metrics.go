package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the planning engine.
type Metrics struct {
	config MetricsConfig

	// Solve metrics
	solvesStarted   *prometheus.CounterVec
	solvesCompleted *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec

	// Compile metrics
	compiles        *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec

	// Search metrics
	searchIterations *prometheus.HistogramVec
	searchExpansions *prometheus.HistogramVec
	planLength       *prometheus.HistogramVec
	frontierSize     prometheus.Gauge

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// System metrics
	activeSolves prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	countBuckets := prometheus.ExponentialBuckets(1, 4, 10)

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		solvesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_started_total",
				Help:      "Total number of solve runs started",
			},
			[]string{"domain"},
		),
		solvesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_completed_total",
				Help:      "Total number of solve runs completed",
			},
			[]string{"domain", "status"},
		),
		solveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Duration of solve runs in seconds",
				Buckets:   buckets,
			},
			[]string{"domain", "status"},
		),

		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiles_total",
				Help:      "Total number of domain compilations",
			},
			[]string{"domain", "status"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Duration of domain compilation in seconds",
				Buckets:   buckets,
			},
			[]string{"domain"},
		),

		searchIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_iterations",
				Help:      "Frontier selections performed per solve run",
				Buckets:   countBuckets,
			},
			[]string{"domain"},
		),
		searchExpansions: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_expansions",
				Help:      "Node expansions performed per solve run",
				Buckets:   countBuckets,
			},
			[]string{"domain"},
		),
		planLength: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_length_actions",
				Help:      "Number of actions in winning plans",
				Buckets:   countBuckets,
			},
			[]string{"domain"},
		),
		frontierSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frontier_size",
				Help:      "Current size of the search frontier",
			},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_kind_total",
				Help:      "Total number of errors by classification",
			},
			[]string{"kind"},
		),

		activeSolves: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_solves",
				Help:      "Current number of in-flight solve runs",
			},
		),
	}

	registry.MustRegister(
		m.solvesStarted,
		m.solvesCompleted,
		m.solveDuration,
		m.compiles,
		m.compileDuration,
		m.searchIterations,
		m.searchExpansions,
		m.planLength,
		m.frontierSize,
		m.errorsByKind,
		m.activeSolves,
	)

	return m, nil
}

// RecordSolveStarted increments the counter for started solve runs.
func (m *Metrics) RecordSolveStarted(domain string) {
	if m.solvesStarted == nil {
		return
	}
	m.solvesStarted.WithLabelValues(domain).Inc()
	m.activeSolves.Inc()
}

// RecordSolveCompleted records a completed solve run with its status and
// duration.
func (m *Metrics) RecordSolveCompleted(domain, status string, duration time.Duration) {
	if m.solvesCompleted == nil {
		return
	}
	m.solvesCompleted.WithLabelValues(domain, status).Inc()
	m.solveDuration.WithLabelValues(domain, status).Observe(duration.Seconds())
	m.activeSolves.Dec()
}

// RecordCompile records a domain compilation.
func (m *Metrics) RecordCompile(domain, status string, duration time.Duration) {
	if m.compiles == nil {
		return
	}
	m.compiles.WithLabelValues(domain, status).Inc()
	m.compileDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordSearch records per-run search statistics.
func (m *Metrics) RecordSearch(domain string, iterations, expansions int) {
	if m.searchIterations == nil {
		return
	}
	m.searchIterations.WithLabelValues(domain).Observe(float64(iterations))
	m.searchExpansions.WithLabelValues(domain).Observe(float64(expansions))
}

// RecordPlanLength records the action count of a winning plan.
func (m *Metrics) RecordPlanLength(domain string, actions int) {
	if m.planLength == nil {
		return
	}
	m.planLength.WithLabelValues(domain).Observe(float64(actions))
}

// SetFrontierSize sets the current frontier gauge.
func (m *Metrics) SetFrontierSize(size int) {
	if m.frontierSize == nil {
		return
	}
	m.frontierSize.Set(float64(size))
}

// RecordError records an error by classification.
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
