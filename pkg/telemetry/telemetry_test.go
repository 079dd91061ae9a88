package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = "" }},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}},
		{"bad sampling rate", func(c *Config) { c.Tracing.SamplingRate = 1.5 }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if got := parseLogLevel("debug"); got != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", got)
	}
	if got := parseLogLevel("nonsense"); got != zerolog.InfoLevel {
		t.Errorf("expected fallback to info level, got %v", got)
	}
}

func TestLoggerContext(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Error("expected logger round-trip through context")
	}

	// A bare context still yields a usable logger
	if FromContext(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	// None of these should panic on the no-op instance
	m.RecordSolveStarted("d")
	m.RecordSolveCompleted("d", "solved", time.Second)
	m.RecordCompile("d", "ok", time.Millisecond)
	m.RecordSearch("d", 5, 4)
	m.RecordPlanLength("d", 3)
	m.SetFrontierSize(2)
	m.RecordError("assembly")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from no-op handler, got %d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{
		Enabled:       true,
		ListenAddress: ":0",
		Path:          "/metrics",
		Namespace:     "openplan",
	})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordSolveStarted("errands")
	m.RecordSolveCompleted("errands", "solved", 12*time.Millisecond)
	m.RecordSearch("errands", 5, 4)
	m.RecordPlanLength("errands", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"openplan_solves_started_total",
		"openplan_solves_completed_total",
		"openplan_search_iterations",
		"openplan_plan_length_actions",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected exposition to contain %s", metric)
		}
	}
}

func TestNewTelemetryAndSolveContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("NewTelemetry failed: %v", err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Fatal("expected telemetry round-trip through context")
	}

	ctx = WithSolveContext(ctx, "run-1", "errands")
	EndSolveContext(ctx, "errands", "solved", nil)

	// Without telemetry in the context both helpers are no-ops
	plain := WithSolveContext(context.Background(), "run-2", "errands")
	EndSolveContext(plain, "errands", "solved", nil)
}

func TestDisabledTracerIsUsable(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "planr", "test", "dev")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ctx, span := tracer.StartSolveSpan(context.Background(), "run-1", "errands")
	RecordSuccess(span)
	span.End()

	if err := tracer.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
