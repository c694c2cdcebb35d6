package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dennisdiepolder/activations/backend/internal/api"
	"github.com/dennisdiepolder/activations/backend/internal/config"
	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %s", response["status"])
	}
	if response["service"] != "activations-backend" {
		t.Errorf("expected service activations-backend, got %s", response["service"])
	}
}

type stubService struct {
	err error
}

func (s *stubService) Load(ctx context.Context, sheet, query string) (*types.Dashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.Dashboard{Sheet: sheet, Query: query, Rows: []types.RowView{}}, nil
}

func (s *stubService) Sheets(ctx context.Context) ([]types.SheetDescriptor, error) {
	return []types.SheetDescriptor{{Name: types.MasterSheet, PeriodLabel: types.MasterSheet}}, s.err
}

func (s *stubService) Reload(ctx context.Context) error { return nil }

func testRouter(svc api.DashboardService, simURL string) http.Handler {
	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:5173"}, SimURL: simURL}
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return newRouter(cfg, api.NewDashboardHandler(svc, zerolog.Nop()), ws, zerolog.Nop())
}

func TestRouter(t *testing.T) {
	r := testRouter(&stubService{}, "")

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/sheets", http.StatusOK},
		{http.MethodGet, "/api/dashboard?sheet=2025-01-02&q=ali", http.StatusOK},
		{http.MethodPost, "/api/reload", http.StatusNoContent},
		{http.MethodGet, "/api/reload", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/admin/sim/status", http.StatusNotFound},
		{http.MethodGet, "/ws", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestRouterDashboardFailure(t *testing.T) {
	r := testRouter(&stubService{err: errors.New("upstream down")}, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to load data. Please try again later.") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestRouterMountsAdminWithSimulator(t *testing.T) {
	sim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"seed":1}`))
	}))
	defer sim.Close()

	r := testRouter(&stubService{}, sim.URL)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sim/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
