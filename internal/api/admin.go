package api

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// AdminHandler proxies admin requests to the sheet simulator
type AdminHandler struct {
	simURL string
	logger zerolog.Logger
	client *http.Client
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(simURL string, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		simURL: simURL,
		logger: logger.With().Str("component", "admin_handler").Logger(),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// proxyToSim forwards a request to the simulator and copies the response back
func (h *AdminHandler) proxyToSim(w http.ResponseWriter, r *http.Request, method, path string) {
	url := h.simURL + path

	var body io.Reader
	if r.Body != nil && (method == http.MethodPost || method == http.MethodPut) {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), method, url, body)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("failed to create proxy request")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error().Err(err).Str("url", url).Msg("failed to reach simulator")
		http.Error(w, `{"error":"simulator unavailable"}`, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// GetSimStatus proxies GET /status to the simulator
func (h *AdminHandler) GetSimStatus(w http.ResponseWriter, r *http.Request) {
	h.proxyToSim(w, r, http.MethodGet, "/status")
}

// ReseedSim proxies POST /reseed to the simulator
func (h *AdminHandler) ReseedSim(w http.ResponseWriter, r *http.Request) {
	h.proxyToSim(w, r, http.MethodPost, "/reseed")
}
