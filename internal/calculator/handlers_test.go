package calculator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sam-calculator/internal/observability"
	"sam-calculator/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, opts StoreOptions) (http.Handler, *Store) {
	t.Helper()

	observability.Logger = zap.NewNop()
	if err := InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := NewStore(opts)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store))
	return r, store
}

func createSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	return resp
}

func TestCreateAndGetSession(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})

	created := createSession(t, router)
	if created.ID == "" {
		t.Fatal("expected a session id")
	}
	if created.State.Output != "0" || created.Display.Alert != `Display is "0"` {
		t.Fatalf("expected a cleared session, got %+v", created)
	}

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+created.ID, nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.ID != created.ID {
		t.Fatalf("expected id %q, got %q", created.ID, got.ID)
	}
}

func TestCreateSessionWhenStoreIsFull(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{MaxSessions: 1})
	createSession(t, router)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if body["error"] != ErrStoreFull.Error() {
		t.Fatalf("expected error %q, got %q", ErrStoreFull.Error(), body["error"])
	}
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/calculator/sessions/missing"},
		{http.MethodDelete, "/calculator/sessions/missing"},
		{http.MethodPost, "/calculator/sessions/missing/actions"},
		{http.MethodPost, "/calculator/sessions/missing/batch"},
		{http.MethodGet, "/calculator/sessions/missing/history"},
		{http.MethodGet, "/calculator/sessions/missing/stream"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := testutil.ExecuteRequest(httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)), router)
			testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestProposeAppliesAction(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	var resp SessionResponse
	for _, p := range seq(digits("1234"), plus) {
		w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/actions", p), router)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)
		testutil.DecodeJSONBody(t, w.Body, &resp)
	}

	if resp.State.NextOp != OpPlus {
		t.Fatalf("expected pending plus, got %q", resp.State.NextOp)
	}
	if resp.Display.Output != "1,234" {
		t.Fatalf("expected display %q, got %q", "1,234", resp.Display.Output)
	}
	if resp.Display.Alert != `Display is "1234 +"` {
		t.Fatalf("unexpected alert %q", resp.Display.Alert)
	}
}

func TestProposeRejectedByDispatcher(t *testing.T) {
	router, store := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/actions", Proposal{Action: "digit", Value: "12"}), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if body["error"] != `Invalid value specified for digit, "12"` {
		t.Fatalf("unexpected error %q", body["error"])
	}

	s, _ := store.Get(id)
	if !s.Snapshot().Equal(Baseline()) {
		t.Fatalf("expected the session to be untouched, got %+v", s.Snapshot())
	}
}

func TestProposeInvalidBody(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	req := httptest.NewRequest(http.MethodPost, "/calculator/sessions/"+id+"/actions", strings.NewReader("{"))
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestProposeReducerErrorIsPartOfState(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	var resp SessionResponse
	for _, p := range seq(digits("9"), negation, step("squareroot")) {
		w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/actions", p), router)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)
		testutil.DecodeJSONBody(t, w.Body, &resp)
	}

	want := `Invalid input for square root, "-9"`
	if resp.State.Error != want {
		t.Fatalf("expected state error %q, got %q", want, resp.State.Error)
	}
	if !resp.Display.HasError || resp.Display.Output != want {
		t.Fatalf("expected display to show the error, got %+v", resp.Display)
	}
	if resp.Display.Expression != "√(-9)" {
		t.Fatalf("expected expression %q, got %q", "√(-9)", resp.Display.Expression)
	}
}

func TestBatch(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", BatchRequest{
		Actions: seq(digits(".1"), plus, digits(".2"), step("nextOp", "equals")),
	})
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.State.Output != "0.3" {
		t.Fatalf("expected output %q, got %q", "0.3", resp.State.Output)
	}
	if resp.Display.Expression != "0.1 + 0.2 =" {
		t.Fatalf("expected expression %q, got %q", "0.1 + 0.2 =", resp.Display.Expression)
	}
}

func TestBatchStopsAtRejectedProposal(t *testing.T) {
	router, store := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", BatchRequest{
		Actions: []Proposal{
			{Action: "digit", Value: "7"},
			{Action: "nextOp", Value: "power"},
			{Action: "digit", Value: "8"},
		},
	})
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	want := `action 1: Invalid value specified for nextOp, "power"`
	if body["error"] != want {
		t.Fatalf("expected error %q, got %q", want, body["error"])
	}

	s, _ := store.Get(id)
	if got := s.Snapshot().Output; got != "7" {
		t.Fatalf("expected actions before the rejection to apply, got output %q", got)
	}
}

func TestBatchRequiresActions(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", BatchRequest{}), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", BatchRequest{
		Actions: seq(digits("2"), times, digits("3"), eq, digits("1")),
	})
	testutil.CheckResponseCode(t, http.StatusOK, testutil.ExecuteRequest(req, router).Code)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+id+"/history", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var h History
	testutil.DecodeJSONBody(t, w.Body, &h)
	if len(h.Completed) != 1 {
		t.Fatalf("expected 1 completed computation, got %d", len(h.Completed))
	}
	if out := h.Completed[0][len(h.Completed[0])-1].Output; out != "6" {
		t.Fatalf("expected completed output %q, got %q", "6", out)
	}
	if len(h.Current) != 1 || h.Current[0].Output != "1" {
		t.Fatalf("expected current computation [1], got %+v", h.Current)
	}
}

func TestDeleteSession(t *testing.T) {
	router, store := newTestRouter(t, StoreOptions{})
	id := createSession(t, router).ID

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/calculator/sessions/"+id, nil), router)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	if store.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", store.Len())
	}
}

func TestStreamSendsRepresentations(t *testing.T) {
	router, _ := newTestRouter(t, StoreOptions{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	id := createSession(t, router).ID

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/calculator/sessions/" + id + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer conn.Close()

	read := func() Representation {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var rep Representation
		if err := conn.ReadJSON(&rep); err != nil {
			t.Fatalf("reading representation: %v", err)
		}
		return rep
	}

	if rep := read(); rep.Output != "0" {
		t.Fatalf("expected initial output %q, got %q", "0", rep.Output)
	}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/batch", BatchRequest{
		Actions: seq(digits("7"), plus),
	})
	testutil.CheckResponseCode(t, http.StatusOK, testutil.ExecuteRequest(req, router).Code)

	if rep := read(); rep.Output != "7" {
		t.Fatalf("expected output %q, got %q", "7", rep.Output)
	}
	if rep := read(); rep.Expression != "7 +" {
		t.Fatalf("expected expression %q, got %q", "7 +", rep.Expression)
	}
}
