package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/satground/tourflow/internal/engine"
	"github.com/satground/tourflow/internal/models"
	"github.com/satground/tourflow/internal/store"
)

func testCatalog() models.Catalog {
	return models.Catalog{
		GlobalIntro: &models.Flow{
			ID: "intro",
			Steps: []models.FlowStep{
				{ID: "intro-1"},
				{ID: "intro-2"},
			},
		},
		Scenarios: map[string]models.Flow{
			"leo": {
				ID: "leo-pass",
				Steps: []models.FlowStep{
					{ID: "leo-1"},
					{ID: "leo-2"},
					{ID: "leo-3"},
				},
			},
		},
	}
}

func newTestServer(autoStart bool) *Server {
	mgr := engine.NewManager(testCatalog(), store.NewInMemoryStore(), autoStart)
	return NewServer(mgr, "")
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

// decodeView pulls the TourStateView out of the response envelope.
func decodeView(t *testing.T, rr *httptest.ResponseRecorder) TourStateView {
	t.Helper()
	var resp struct {
		Status string        `json:"status"`
		Result TourStateView `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	return resp.Result
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(false)
	rr := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestCatalogHandler(t *testing.T) {
	srv := newTestServer(false)
	rr := doJSON(t, srv, http.MethodGet, "/catalog", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Result models.Catalog `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.GlobalIntro == nil || resp.Result.GlobalIntro.ID != "intro" {
		t.Errorf("expected catalog with global intro, got %+v", resp.Result)
	}
}

func TestCreateLearnerHandler(t *testing.T) {
	srv := newTestServer(false)
	rr := doJSON(t, srv, http.MethodPost, "/learners", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var resp struct {
		Result map[string]string `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Result["learner_id"], "l_") {
		t.Errorf("expected learner id with l_ prefix, got %q", resp.Result["learner_id"])
	}
}

func TestStateHandlerRequiresLearnerID(t *testing.T) {
	srv := newTestServer(false)
	rr := doJSON(t, srv, http.MethodGet, "/tutorial/state", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestStateHandlerDefaultState(t *testing.T) {
	srv := newTestServer(false)
	rr := doJSON(t, srv, http.MethodGet, "/tutorial/state?learner_id=alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	view := decodeView(t, rr)
	if view.LearnerID != "alice" {
		t.Errorf("expected learner alice, got %q", view.LearnerID)
	}
	if !view.State.Enabled || view.IsActive || view.ActiveFlow != nil {
		t.Errorf("expected enabled idle state, got %+v", view)
	}
}

func TestStateHandlerAutoStart(t *testing.T) {
	srv := newTestServer(true)
	rr := doJSON(t, srv, http.MethodGet, "/tutorial/state?learner_id=alice", nil)
	view := decodeView(t, rr)
	if view.State.ActiveFlowID != "intro" || !view.IsActive {
		t.Errorf("expected auto-started intro, got %+v", view.State)
	}
	if view.ActiveStep == nil || view.ActiveStep.ID != "intro-1" {
		t.Errorf("expected active step intro-1, got %+v", view.ActiveStep)
	}
}

func TestTutorialLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(false)

	// Start a scenario flow.
	rr := doJSON(t, srv, http.MethodPost, "/tutorial/start", map[string]interface{}{
		"learner_id": "alice", "flow_id": "leo-pass",
	})
	view := decodeView(t, rr)
	if view.State.ActiveFlowID != "leo-pass" || view.State.ActiveStepIndex != 0 {
		t.Fatalf("expected leo-pass at step 0, got %+v", view.State)
	}

	// Advance twice, back once.
	doJSON(t, srv, http.MethodPost, "/tutorial/next", map[string]interface{}{"learner_id": "alice"})
	doJSON(t, srv, http.MethodPost, "/tutorial/next", map[string]interface{}{"learner_id": "alice"})
	rr = doJSON(t, srv, http.MethodPost, "/tutorial/prev", map[string]interface{}{"learner_id": "alice"})
	view = decodeView(t, rr)
	if view.State.ActiveStepIndex != 1 {
		t.Fatalf("expected step index 1, got %d", view.State.ActiveStepIndex)
	}
	if view.ActiveStep == nil || view.ActiveStep.ID != "leo-2" {
		t.Fatalf("expected step leo-2, got %+v", view.ActiveStep)
	}

	// Dismiss permanently; restart is blocked.
	rr = doJSON(t, srv, http.MethodPost, "/tutorial/dismiss", map[string]interface{}{
		"learner_id": "alice", "dont_show_again": true,
	})
	view = decodeView(t, rr)
	if view.State.ActiveFlowID != "" || !view.State.DismissedFlows.Has("leo-pass") {
		t.Fatalf("expected dismissed leo-pass, got %+v", view.State)
	}
	rr = doJSON(t, srv, http.MethodPost, "/tutorial/start", map[string]interface{}{
		"learner_id": "alice", "flow_id": "leo-pass",
	})
	view = decodeView(t, rr)
	if view.State.ActiveFlowID != "" {
		t.Error("restart of a dismissed flow must be a no-op")
	}

	// Reset clears everything.
	rr = doJSON(t, srv, http.MethodPost, "/tutorial/reset", map[string]interface{}{"learner_id": "alice"})
	view = decodeView(t, rr)
	if len(view.State.DismissedFlows) != 0 || !view.State.Enabled {
		t.Errorf("expected default state after reset, got %+v", view.State)
	}
}

func TestEnableHandler(t *testing.T) {
	srv := newTestServer(false)
	doJSON(t, srv, http.MethodPost, "/tutorial/start", map[string]interface{}{
		"learner_id": "alice", "flow_id": "intro",
	})

	rr := doJSON(t, srv, http.MethodPost, "/tutorial/enable", map[string]interface{}{
		"learner_id": "alice", "enabled": false,
	})
	view := decodeView(t, rr)
	if view.State.Enabled || view.State.ActiveFlowID != "" {
		t.Errorf("disable must clear the active flow, got %+v", view.State)
	}

	rr = doJSON(t, srv, http.MethodPost, "/tutorial/enable", map[string]interface{}{"learner_id": "alice"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when enabled is missing, got %d", rr.Code)
	}
}

func TestTutorialHandlersRejectBadRequests(t *testing.T) {
	srv := newTestServer(false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, path: "/tutorial/next", body: "", want: http.StatusMethodNotAllowed},
		{name: "invalid json", method: http.MethodPost, path: "/tutorial/next", body: "{", want: http.StatusBadRequest},
		{name: "missing learner id", method: http.MethodPost, path: "/tutorial/next", body: "{}", want: http.StatusBadRequest},
		{name: "start without flow id", method: http.MethodPost, path: "/tutorial/start", body: `{"learner_id":"alice"}`, want: http.StatusBadRequest},
		{name: "state wrong method", method: http.MethodPost, path: "/tutorial/state", body: "", want: http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestNoopMutationsReturnOK(t *testing.T) {
	srv := newTestServer(false)
	// next/prev/dismiss with no active flow are defined no-ops, not errors.
	for _, path := range []string{"/tutorial/next", "/tutorial/prev", "/tutorial/dismiss"} {
		rr := doJSON(t, srv, http.MethodPost, path, map[string]interface{}{"learner_id": "alice"})
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200 for no-op, got %d", path, rr.Code)
		}
	}
}
