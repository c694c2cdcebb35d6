package sheetsim

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Options controls the generated workbook and failure injection
type Options struct {
	Agents   int
	Days     int
	Seed     int64
	FailRate float64 // share of /exec requests answered with HTTP 500
}

// Status is the simulator state reported by /status
type Status struct {
	Seed     int64   `json:"seed"`
	Agents   int     `json:"agents"`
	Sheets   int     `json:"sheets"`
	FailRate float64 `json:"failRate"`
	Requests int64   `json:"requests"`
	Failures int64   `json:"failures"`
}

// API serves a generated workbook the way the Apps Script web app does
type API struct {
	opts     Options
	workbook *Workbook
	now      func() time.Time
	rng      *rand.Rand
	requests int64
	failures int64
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// NewAPI creates a simulator serving a workbook generated from opts
func NewAPI(opts Options, logger zerolog.Logger) *API {
	api := &API{
		opts:   opts,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: logger,
	}
	api.workbook = api.generate(opts.Seed)
	return api
}

func (api *API) generate(seed int64) *Workbook {
	return NewGenerator(seed).Generate(api.opts.Agents, api.opts.Days, api.now())
}

// SetupRoutes configures HTTP routes
func (api *API) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/health", api.healthHandler).Methods("GET")
	router.HandleFunc("/status", api.statusHandler).Methods("GET")
	router.HandleFunc("/reseed", api.reseedHandler).Methods("POST")
	router.HandleFunc("/exec", api.execHandler).Methods("GET").Queries("action", "{action}")
}

// healthHandler returns service health
func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// statusHandler returns the current workbook parameters and request counters
func (api *API) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Status())
}

// reseedHandler regenerates the workbook, from the given seed or a fresh one
func (api *API) reseedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed *int64 `json:"seed"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	wb := api.generate(seed)

	api.mu.Lock()
	api.workbook = wb
	api.opts.Seed = seed
	api.mu.Unlock()

	api.logger.Info().Int64("seed", seed).Int("sheets", len(wb.Sheets)).Msg("workbook regenerated")
	writeJSON(w, http.StatusOK, api.Status())
}

// execHandler answers ?action=getSheets and ?action=getData&sheet=<name>
func (api *API) execHandler(w http.ResponseWriter, r *http.Request) {
	if api.shouldFail() {
		http.Error(w, "simulated upstream failure", http.StatusInternalServerError)
		return
	}

	api.mu.RLock()
	wb := api.workbook
	api.mu.RUnlock()

	switch action := mux.Vars(r)["action"]; action {
	case "getSheets":
		writeJSON(w, http.StatusOK, wb.Descriptors())

	case "getData":
		name := r.URL.Query().Get("sheet")
		rows, ok := wb.Rows(name)
		if !ok {
			api.logger.Debug().Str("sheet", name).Msg("unknown sheet requested")
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sheet not found"})
			return
		}
		writeJSON(w, http.StatusOK, rows)

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown action: " + action})
	}
}

// shouldFail counts the request and decides whether to inject a failure
func (api *API) shouldFail() bool {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.requests++
	if api.opts.FailRate > 0 && api.rng.Float64() < api.opts.FailRate {
		api.failures++
		return true
	}
	return false
}

// Status returns a snapshot of the simulator state
func (api *API) Status() Status {
	api.mu.RLock()
	defer api.mu.RUnlock()
	return Status{
		Seed:     api.opts.Seed,
		Agents:   len(api.workbook.Agents),
		Sheets:   len(api.workbook.Sheets),
		FailRate: api.opts.FailRate,
		Requests: api.requests,
		Failures: api.failures,
	}
}

// Start starts the HTTP server
func (api *API) Start(ctx context.Context, addr string) error {
	router := mux.NewRouter()
	api.SetupRoutes(router)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		api.logger.Info().Msg("shutting down simulator")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	api.logger.Info().Str("addr", addr).Msg("simulator started")
	return server.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
