package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/activations/backend/internal/types"
	"github.com/rs/zerolog"
)

// loadFailedBody is the only error detail exposed to clients when upstream fails
const loadFailedBody = `{"error":"Failed to load data. Please try again later."}`

// DashboardService runs load cycles for the handlers
type DashboardService interface {
	Load(ctx context.Context, sheet, query string) (*types.Dashboard, error)
	Sheets(ctx context.Context) ([]types.SheetDescriptor, error)
	Reload(ctx context.Context) error
}

// DashboardHandler provides REST endpoints for sheets and dashboards
type DashboardHandler struct {
	service DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetSheets returns the upstream sheet list
// GET /api/sheets
func (h *DashboardHandler) GetSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.service.Sheets(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sheets")
		writeLoadFailed(w)
		return
	}

	if sheets == nil {
		sheets = []types.SheetDescriptor{}
	}
	writeJSON(w, http.StatusOK, sheets)
}

// GetDashboard runs one load cycle for a sheet and optional search query
// GET /api/dashboard?sheet=<name>&q=<query>
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sheet := strings.TrimSpace(r.URL.Query().Get("sheet"))
	if sheet == "" {
		sheet = types.MasterSheet
	}
	query := r.URL.Query().Get("q")

	d, err := h.service.Load(r.Context(), sheet, query)
	if err != nil {
		h.logger.Error().Err(err).
			Str("sheet", sheet).
			Str("query", query).
			Msg("failed to load dashboard")
		writeLoadFailed(w)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Reload drops the read cache so the next load goes upstream
// POST /api/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reload(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to invalidate read cache")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reload"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeLoadFailed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	w.Write([]byte(loadFailedBody))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
