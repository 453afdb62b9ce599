package calculator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metric instruments, initialized once via InitMetrics().
var (
	actionsCounter  metric.Int64Counter
	actionHistogram metric.Float64Histogram
	errorCounter    metric.Int64Counter
	resultGauge     metric.Float64Gauge
	sessionsCounter metric.Int64Counter
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	actionsCounter, err = meter.Int64Counter("calculator.actions.total",
		metric.WithDescription("Total number of calculator actions proposed"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return fmt.Errorf("creating actions counter: %w", err)
	}

	actionHistogram, err = meter.Float64Histogram("calculator.action.duration",
		metric.WithDescription("Duration of calculator actions in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating action histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of rejected proposals and calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The output after the last completed calculation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	sessionsCounter, err = meter.Int64Counter("calculator.sessions.created",
		metric.WithDescription("Total number of calculator sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions counter: %w", err)
	}

	return nil
}
