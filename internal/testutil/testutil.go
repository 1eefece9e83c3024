// Package testutil provides common test utilities and helpers for TourFlow tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/satground/tourflow/internal/api"
	"github.com/satground/tourflow/internal/engine"
	"github.com/satground/tourflow/internal/models"
	"github.com/satground/tourflow/internal/store"
)

// TestCatalog returns the catalog used across tests: a two-step global intro
// "intro" plus a three-step scenario flow "leo-pass" under scenario "leo".
func TestCatalog() models.Catalog {
	return models.Catalog{
		GlobalIntro: &models.Flow{
			ID:    "intro",
			Title: "Welcome tour",
			Steps: []models.FlowStep{
				{ID: "intro-1", ContentText: "Welcome to mission control."},
				{ID: "intro-2", ContentText: "This is your dashboard.", Target: "#dashboard"},
			},
		},
		Scenarios: map[string]models.Flow{
			"leo": {
				ID:    "leo-pass",
				Title: "Low-earth-orbit pass",
				Steps: []models.FlowStep{
					{ID: "leo-1", ContentText: "Acquire the signal.", Target: "#antenna"},
					{ID: "leo-2", ContentText: "Check telemetry."},
					{ID: "leo-3", ContentText: "Queue your commands.", Target: "#queue"},
				},
			},
		},
	}
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer(autoStart bool) *api.Server {
	mgr := engine.NewManager(TestCatalog(), store.NewInMemoryStore(), autoStart)
	return api.NewServer(mgr, "")
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
