// Package telemetry provides observability instrumentation for the
// planning engine.
//
// The telemetry package integrates structured logging (zerolog),
// distributed tracing (OpenTelemetry), and metrics (Prometheus) into a
// unified system for monitoring and debugging solve runs.
//
// # Architecture
//
// The telemetry system is built on three pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for solver insight
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "planr"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context and wrap a solve run:
//
//	ctx = tel.WithContext(ctx)
//	ctx = telemetry.WithSolveContext(ctx, runID, domainName)
//	result, err := problem.Solve(ctx)
//	telemetry.EndSolveContext(ctx, domainName, status, err)
//
// # Structured Logging
//
// Loggers carry typed fields and can be scoped to a domain or run:
//
//	logger := tel.Logger.WithDomain("errands").WithRunID(runID)
//	logger.Info("starting solve")
//
// Loggers travel through the context; telemetry.FromContext(ctx) recovers
// the nearest one, falling back to a stderr logger.
//
// # Metrics
//
// Solver metrics cover solve counts and durations by status, compile
// timings, search iteration and expansion distributions, plan lengths,
// and the current frontier size. Metrics are exposed over HTTP in
// Prometheus format when enabled.
//
// # Tracing
//
// Spans wrap domain compilation and solve runs. Exporters include stdout
// for development and OTLP over gRPC for production collectors.
package telemetry
