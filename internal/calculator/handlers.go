package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sam-calculator/internal/handlers"
	"sam-calculator/internal/observability"
	"sam-calculator/internal/safemath"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator session endpoints.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ---------------------------------------------------------------------------
// Handlers: session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.create",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	session, err := h.store.Create()
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "session.create", err.Error(), err, http.StatusServiceUnavailable, w)
		return
	}

	sessionsCounter.Add(ctx, 1)
	span.SetAttributes(attribute.String("calculator.session", session.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session created",
		zap.String("session_id", session.ID),
		zap.Int("active_sessions", h.store.Len()),
		zap.String("request_id", requestID),
	)

	writeSession(w, http.StatusCreated, session.ID, session.Snapshot())
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, "session.get")
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, session.ID, session.Snapshot())
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(id); err != nil {
		span := trace.SpanFromContext(ctx)
		observability.RecordError(ctx, span, logger, errorCounter, "session.delete", err.Error(), err, http.StatusNotFound, w)
		return
	}

	logger.Info("calculator session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /calculator/sessions/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r, "session.history")
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, session.History())
}

// ---------------------------------------------------------------------------
// Handlers: proposals
// ---------------------------------------------------------------------------

// Propose handles POST /calculator/sessions/{id}/actions
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	session, ok := h.lookup(w, r, "propose")
	if !ok {
		return
	}

	var p Proposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		span := trace.SpanFromContext(ctx)
		observability.RecordError(ctx, span, logger, errorCounter, "propose", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	state, err := h.propose(ctx, logger, session, p, -1)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		observability.RecordError(ctx, span, logger, errorCounter, p.Action, err.Error(), err, http.StatusBadRequest, w)
		return
	}

	writeSession(w, http.StatusOK, session.ID, state)
}

// Batch handles POST /calculator/sessions/{id}/batch. It folds a list of
// proposals in order, creating a child span for every step. The first
// proposal the dispatcher rejects stops the batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	session, ok := h.lookup(w, r, "batch")
	if !ok {
		return
	}

	// Parent span for the entire batch
	ctx, span := tracer.Start(ctx, "calculator.batch",
		trace.WithAttributes(
			attribute.String("calculator.session", session.ID),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "batch", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Actions) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "batch", "no actions provided", fmt.Errorf("actions array is empty"), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("batch.actions_count", len(req.Actions)))

	state := session.Snapshot()
	for i, p := range req.Actions {
		var err error
		state, err = h.propose(ctx, logger, session, p, i)
		if err != nil {
			observability.RecordError(ctx, span, logger, errorCounter, p.Action, fmt.Sprintf("action %d: %s", i, err.Error()), err, http.StatusBadRequest, w)
			return
		}
	}

	span.AddEvent("batch.complete", trace.WithAttributes(
		attribute.String("output", state.Output),
		attribute.Int("total_actions", len(req.Actions)),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator batch completed",
		zap.String("session_id", session.ID),
		zap.Int("actions", len(req.Actions)),
		zap.String("output", state.Output),
		zap.String("request_id", requestID),
	)

	writeSession(w, http.StatusOK, session.ID, state)
}

// propose runs one proposal inside its own span and records metrics for it.
// index is the position within a batch, or -1 for a single proposal.
func (h *Handler) propose(ctx context.Context, logger *zap.Logger, session *Session, p Proposal, index int) (State, error) {
	attrs := []attribute.KeyValue{
		attribute.String("calculator.session", session.ID),
		attribute.String("calculator.action", p.Action),
		attribute.String("calculator.value", p.Value),
	}
	if index >= 0 {
		attrs = append(attrs, attribute.Int("batch.step.index", index))
	}

	ctx, span := tracer.Start(ctx, "calculator.propose", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	state, err := session.Next(p)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	opAttrs := metric.WithAttributes(attribute.String("action", p.Action))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	actionsCounter.Add(ctx, 1, opAttrs)
	actionHistogram.Record(ctx, elapsed, opAttrs)

	if state.Error != "" {
		// Reducer errors are part of the state, not a failed request.
		errorCounter.Add(ctx, 1, opAttrs)
		span.AddEvent("calculator.error", trace.WithAttributes(
			attribute.String("error", state.Error),
		))
		logger.Info("calculator reported an error",
			zap.String("session_id", session.ID),
			zap.String("action", p.Action),
			zap.String("value", p.Value),
			zap.String("error", state.Error),
		)
	} else if state.Last == lastEquals {
		if result, ok := safemath.Parse(state.Output); ok {
			resultGauge.Record(ctx, result, opAttrs)
		}
	}

	span.SetAttributes(attribute.String("calculator.output", state.Output))
	span.SetStatus(codes.Ok, "")

	logger.Debug("calculator action applied",
		zap.String("session_id", session.ID),
		zap.String("action", p.Action),
		zap.String("value", p.Value),
		zap.String("output", state.Output),
		zap.Float64("duration_ms", elapsed),
	)

	return state, nil
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, opName string) (*Session, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	session, err := h.store.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		logger := observability.LoggerWithTrace(ctx)
		span := trace.SpanFromContext(ctx)
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), fmt.Errorf("session %q: %w", id, err), status, w)
		return nil, false
	}
	return session, true
}

func writeSession(w http.ResponseWriter, status int, id string, state State) {
	handlers.WriteJSON(w, status, SessionResponse{
		ID:      id,
		State:   state,
		Display: Represent(state),
	})
}
