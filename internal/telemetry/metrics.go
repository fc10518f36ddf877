package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/preflight"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Bootstrap metrics
	BootstrapStepsTotal      metric.Int64Counter
	BootstrapStepErrorsTotal metric.Int64Counter
	BootstrapStepDuration    metric.Float64Histogram

	// Install metrics
	InstallActionsTotal    metric.Int64Counter
	DistArtifactsInstalled metric.Int64Counter

	// Test run metrics
	TestRunsTotal   metric.Int64Counter
	TestRunDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BootstrapStepsTotal, _ = meter.Int64Counter(
		"preflight.bootstrap.steps.total",
		metric.WithDescription("Total number of bootstrap steps executed"),
		metric.WithUnit("{step}"),
	)

	m.BootstrapStepErrorsTotal, _ = meter.Int64Counter(
		"preflight.bootstrap.steps.errors.total",
		metric.WithDescription("Total number of bootstrap step failures"),
		metric.WithUnit("{error}"),
	)

	m.BootstrapStepDuration, _ = meter.Float64Histogram(
		"preflight.bootstrap.steps.duration",
		metric.WithDescription("Duration of bootstrap steps"),
		metric.WithUnit("ms"),
	)

	m.InstallActionsTotal, _ = meter.Int64Counter(
		"preflight.install.actions.total",
		metric.WithDescription("Total number of package install actions"),
		metric.WithUnit("{action}"),
	)

	m.DistArtifactsInstalled, _ = meter.Int64Counter(
		"preflight.install.dist_artifacts.total",
		metric.WithDescription("Total number of dist artifacts installed"),
		metric.WithUnit("{artifact}"),
	)

	m.TestRunsTotal, _ = meter.Int64Counter(
		"preflight.test_runs.total",
		metric.WithDescription("Total number of dispatched test runs"),
		metric.WithUnit("{run}"),
	)

	m.TestRunDuration, _ = meter.Float64Histogram(
		"preflight.test_runs.duration",
		metric.WithDescription("Duration of dispatched test runs"),
		metric.WithUnit("ms"),
	)

	return m
}
