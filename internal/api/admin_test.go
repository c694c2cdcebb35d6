package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestAdminProxiesToSimulator(t *testing.T) {
	var gotMethod, gotPath string
	sim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"seed":7}`))
	}))
	defer sim.Close()

	h := NewAdminHandler(sim.URL, zerolog.Nop())
	w := httptest.NewRecorder()
	h.ReseedSim(w, httptest.NewRequest(http.MethodPost, "/api/admin/sim/reseed", strings.NewReader(`{"seed":7}`)))

	if gotMethod != http.MethodPost || gotPath != "/reseed" {
		t.Errorf("expected POST /reseed, got %s %s", gotMethod, gotPath)
	}
	if w.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", w.Code)
	}
	if w.Body.String() != `{"seed":7}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestAdminSimulatorUnavailable(t *testing.T) {
	sim := httptest.NewServer(http.NotFoundHandler())
	url := sim.URL
	sim.Close()

	h := NewAdminHandler(url, zerolog.Nop())
	w := httptest.NewRecorder()
	h.GetSimStatus(w, httptest.NewRequest(http.MethodGet, "/api/admin/sim/status", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", w.Code)
	}
}
