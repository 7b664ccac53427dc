package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" || status.Service != "assist-gateway" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }
	failing := func(ctx context.Context) (bool, error) { return false, errors.New("missing key") }

	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadinessHandler(map[string]HealthCheckFunc{"summarizer": ok, "translator": ok})(rec, httptest.NewRequest("GET", "/ready", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var status HealthStatus
		json.NewDecoder(rec.Body).Decode(&status)
		if status.Status != "ready" || len(status.Dependencies) != 2 {
			t.Errorf("Unexpected status: %+v", status)
		}
	})

	t.Run("one failing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadinessHandler(map[string]HealthCheckFunc{"summarizer": failing, "translator": ok})(rec, httptest.NewRequest("GET", "/ready", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", rec.Code)
		}
		var status HealthStatus
		json.NewDecoder(rec.Body).Decode(&status)
		if status.Status != "not_ready" {
			t.Errorf("Expected not_ready, got %s", status.Status)
		}
		dep := status.Dependencies["summarizer"]
		if dep.Status != "unhealthy" || dep.Message != "missing key" {
			t.Errorf("Unexpected summarizer status: %+v", dep)
		}
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "debug",
		"warn":  "warn",
		"error": "error",
		"bogus": "info",
		"":      "info",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestWithCorrelationID_GeneratesID(t *testing.T) {
	if id := NewCorrelationID(); len(id) != 36 {
		t.Errorf("Expected uuid string, got %q", id)
	}
	// Must not panic without prior InitLogger.
	_ = WithCorrelationID("")
}
