package calculator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/testutil"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(maxSessions, maxKeys int) (http.Handler, *Store) {
	store := NewStore(time.Minute, maxSessions)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store, maxKeys))
	return r, store
}

func postJSON(path, body string) *http.Request {
	return testutil.NewJSONRequest(http.MethodPost, path, body)
}

func createSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	return resp
}

func TestBinaryOperations(t *testing.T) {
	router, _ := newTestRouter(0, 0)

	tests := []struct {
		path    string
		result  float64
		display string
	}{
		{path: "/calculator/add", result: 9, display: "9"},
		{path: "/calculator/subtract", result: 3, display: "3"},
		{path: "/calculator/multiply", result: 18, display: "18"},
		{path: "/calculator/divide", result: 2, display: "2"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := testutil.ExecuteRequest(postJSON(tc.path, `{"a":6,"b":3}`), router)
			testutil.CheckResponseCode(t, http.StatusOK, w.Code)

			var resp CalcResponse
			testutil.DecodeJSONBody(t, w.Body, &resp)
			if resp.Result != tc.result || resp.Display != tc.display {
				t.Fatalf("expected %g (%q), got %g (%q)", tc.result, tc.display, resp.Result, resp.Display)
			}
		})
	}
}

func TestDivideByZeroIsBadRequest(t *testing.T) {
	router, _ := newTestRouter(0, 0)

	w := testutil.ExecuteRequest(postJSON("/calculator/divide", `{"a":1,"b":0}`), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if !strings.Contains(body["error"], "division by zero") {
		t.Fatalf("expected division by zero error, got %q", body["error"])
	}
}

func TestBinaryOperationRejectsInvalidBody(t *testing.T) {
	router, _ := newTestRouter(0, 0)

	w := testutil.ExecuteRequest(postJSON("/calculator/add", `{"a":`), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestSessionKeysRenderDisplay(t *testing.T) {
	router, _ := newTestRouter(0, 0)
	sess := createSession(t, router)

	if sess.State.Display != "0" || sess.State.Phase != PhaseEntering {
		t.Fatalf("expected initial state, got %+v", sess.State)
	}

	w := testutil.ExecuteRequest(postJSON("/calculator/sessions/"+sess.ID+"/keys", `{"keys":"2+3*"}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp KeysResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if got := strings.Join(resp.Displays, ","); got != "2,2,3,5" {
		t.Fatalf("expected displays 2,2,3,5, got %s", got)
	}
	if resp.State.Operator != "*" || resp.State.Stored != "5" {
		t.Fatalf("expected pending * on 5, got %+v", resp.State)
	}

	// Keys accumulate across requests on the same session.
	w = testutil.ExecuteRequest(postJSON("/calculator/sessions/"+sess.ID+"/keys", `{"keys":"4="}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var final KeysResponse
	testutil.DecodeJSONBody(t, w.Body, &final)
	if final.State.Display != "20" || !final.State.Result || final.State.Operator != "" {
		t.Fatalf("expected result 20, got %+v", final.State)
	}

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID, nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.State.Display != "20" {
		t.Fatalf("expected display 20, got %q", got.State.Display)
	}
}

func TestSessionEvaluationErrorRendersErrorDisplay(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	oldLogger := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = oldLogger })

	router, _ := newTestRouter(0, 0)
	sess := createSession(t, router)

	w := testutil.ExecuteRequest(postJSON("/calculator/sessions/"+sess.ID+"/keys", `{"keys":"5/0="}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp KeysResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.State.Display != ErrorDisplay || resp.State.Phase != PhaseErrored || !resp.State.Result {
		t.Fatalf("expected error state, got %+v", resp.State)
	}

	entries := logs.FilterMessage("calculator evaluation failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 evaluation failure log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["session_id"] != sess.ID {
		t.Fatalf("expected session_id %q, got %#v", sess.ID, fields["session_id"])
	}
	if fields["operation"] != "divide" {
		t.Fatalf("expected operation divide, got %#v", fields["operation"])
	}

	w = testutil.ExecuteRequest(postJSON("/calculator/sessions/"+sess.ID+"/keys", `{"keys":"C"}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var cleared KeysResponse
	testutil.DecodeJSONBody(t, w.Body, &cleared)
	if cleared.State != TakeSnapshot(Initial()) {
		t.Fatalf("expected initial state after C, got %+v", cleared.State)
	}
}

func TestSessionKeysRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(0, 4)
	sess := createSession(t, router)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"keys":`},
		{name: "unknown key", body: `{"keys":"2^3"}`},
		{name: "too many keys", body: `{"keys":"12345"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.ExecuteRequest(postJSON("/calculator/sessions/"+sess.ID+"/keys", tc.body), router)
			testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
		})
	}

	// Rejected requests leave the session untouched.
	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID, nil), router)
	var got SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.State.Display != "0" {
		t.Fatalf("expected display 0, got %q", got.State.Display)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	router, _ := newTestRouter(0, 0)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/calculator/sessions/missing", nil),
		httptest.NewRequest(http.MethodDelete, "/calculator/sessions/missing", nil),
		postJSON("/calculator/sessions/missing/keys", `{"keys":"1"}`),
	}

	for _, req := range requests {
		t.Run(req.Method, func(t *testing.T) {
			w := testutil.ExecuteRequest(req, router)
			testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestDeleteSessionClosesScreen(t *testing.T) {
	router, store := newTestRouter(0, 0)
	sess := createSession(t, router)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/calculator/sessions/"+sess.ID, nil), router)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	if store.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", store.Len())
	}
}

func TestCreateSessionRespectsLimit(t *testing.T) {
	router, _ := newTestRouter(1, 0)
	createSession(t, router)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusServiceUnavailable, w.Code)
}

func TestEvaluateRunsFreshEngine(t *testing.T) {
	router, store := newTestRouter(0, 0)

	w := testutil.ExecuteRequest(postJSON("/calculator/evaluate", `{"keys":"2 + 3 * 4 ="}`), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.Keys != "2+3*4=" {
		t.Fatalf("expected normalised keys %q, got %q", "2+3*4=", resp.Keys)
	}
	if len(resp.Steps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(resp.Steps))
	}
	if step := resp.Steps[3]; step.Key != "*" || step.Display != "5" || step.Phase != PhaseOperatorPending {
		t.Fatalf("expected intermediate 5 after *, got %+v", step)
	}
	if resp.State.Display != "20" {
		t.Fatalf("expected display 20, got %q", resp.State.Display)
	}
	if store.Len() != 0 {
		t.Fatal("expected evaluate to leave the session store untouched")
	}
}

func TestEvaluateRejectsUnknownKeys(t *testing.T) {
	router, _ := newTestRouter(0, 0)

	w := testutil.ExecuteRequest(postJSON("/calculator/evaluate", `{"keys":"1+1x"}`), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if body["error"] != "invalid keys" {
		t.Fatalf("expected error %q, got %q", "invalid keys", body["error"])
	}
}
