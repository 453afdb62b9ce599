package main

import (
	"context"
	"errors"

	"sam-calculator/internal/calculator"
	"sam-calculator/internal/observability"
)

// initTelemetry starts the OTLP trace, metric and log pipelines and the
// calculator's metric instruments. The returned function shuts all of them
// down.
func initTelemetry(ctx context.Context) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		return nil, err
	}
	shutdowns = append(shutdowns, traceShutdown)

	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, metricShutdown)

	logShutdown, err := observability.InitLogging(ctx)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, logShutdown)

	return shutdown, nil
}

// initMetrics initialises all metric providers and application-specific
// metric instruments.
func initMetrics(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, err
	}

	return shutdown, nil
}
