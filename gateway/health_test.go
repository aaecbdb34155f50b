package gateway

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"testing"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	config := validConfig()
	return NewCoordinator(config, log.Default(), nil)
}

func TestHealthHandler_ReportsDegradedBeforeFirstTick(t *testing.T) {
	hs := &HealthServer{coordinator: newTestCoordinator(t)}

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hs.healthHandler(rec, req)

	if rec.Code != 503 {
		t.Fatalf("status code: got %d, want 503 before any successful tick", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("status: got %q, want degraded", resp.Status)
	}
}

func TestHealthHandler_ReportsHealthyAfterGoodTick(t *testing.T) {
	c := newTestCoordinator(t)
	c.lastGood.Store(true)
	hs := &HealthServer{coordinator: c}

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hs.healthHandler(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status code: got %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" || !resp.Gateway.LastUpdateSucceeded {
		t.Fatalf("expected a healthy response, got %+v", resp)
	}
}

func TestReadinessHandler_RejectsNonGet(t *testing.T) {
	hs := &HealthServer{coordinator: newTestCoordinator(t)}

	req := httptest.NewRequest("POST", "/ready", nil)
	rec := httptest.NewRecorder()
	hs.readinessHandler(rec, req)

	if rec.Code != 405 {
		t.Fatalf("status code: got %d, want 405 for a non-GET request", rec.Code)
	}
}

func TestNewHealthServer_ZeroPortDisablesServer(t *testing.T) {
	hs := NewHealthServer(newTestCoordinator(t), 0)
	if hs != nil {
		t.Fatal("expected a nil HealthServer when port <= 0")
	}
	if err := hs.Start(); err != nil {
		t.Fatalf("Start on a nil HealthServer should be a no-op, got: %v", err)
	}
}
