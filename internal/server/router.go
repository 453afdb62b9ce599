package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"sam-calculator/internal/calculator"
	"sam-calculator/internal/handlers"
	"sam-calculator/internal/observability"
)

// NewRouter assembles the HTTP surface: health, Prometheus metrics from reg
// and the calculator session routes backed by store.
func NewRouter(store *calculator.Store, reg *prometheus.Registry) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler(reg))

	calculator.RegisterRoutes(r, calculator.NewHandler(store))

	return r
}
