package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sam-calculator/internal/calculator"
	"sam-calculator/internal/observability"
	"sam-calculator/internal/testutil"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *calculator.Store) {
	t.Helper()

	observability.Logger = zap.NewNop()
	if err := calculator.InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := calculator.NewStore(calculator.StoreOptions{MaxSessions: 4})
	reg := prometheus.NewRegistry()
	if err := reg.Register(store.Collector()); err != nil {
		t.Fatalf("registering session collector: %v", err)
	}
	return NewRouter(store, reg), store
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterMetricsEndpointReportsSessions(t *testing.T) {
	router, store := newTestRouter(t)

	if _, err := store.Create(); err != nil {
		t.Fatalf("creating session: %v", err)
	}

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/metrics", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	if body := w.Body.String(); !strings.Contains(body, "calculator_active_sessions 1") {
		t.Fatalf("expected active session gauge in metrics output, got:\n%s", body)
	}
}

func TestNewRouterCalculatorSessionSetsHeaderAndOmitsRequestIDInBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	requestID := w.Result().Header.Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
	}

	var created map[string]any
	testutil.DecodeJSONBody(t, w.Body, &created)

	if _, ok := created["request_id"]; ok {
		t.Fatal("did not expect request_id field in success JSON body")
	}

	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected session id, got %#v", created["id"])
	}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", calculator.BatchRequest{
		Actions: []calculator.Proposal{
			{Action: "digit", Value: "2"},
			{Action: "nextOp", Value: "plus"},
			{Action: "digit", Value: "3"},
			{Action: "equals"},
		},
	})
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp calculator.SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.State.Output != "5" {
		t.Fatalf("expected output %q, got %q", "5", resp.State.Output)
	}
	if resp.Display.Expression != "2 + 3 =" {
		t.Fatalf("expected expression %q, got %q", "2 + 3 =", resp.Display.Expression)
	}
}
