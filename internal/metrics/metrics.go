package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Upstream metrics
	UpstreamFetchesTotal int64
	UpstreamErrorsTotal  int64
	CacheHitsTotal       int64
	CacheMissesTotal     int64

	// Load cycle metrics
	LoadCyclesTotal  int64
	LoadErrorsTotal  int64
	RowsServedTotal  int64
	lastLoadDuration time.Duration

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Refresh metrics
	RefreshCyclesTotal    int64
	DashboardsPushedTotal int64

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates an empty metrics set
func New() *Metrics {
	return &Metrics{
		httpRequestsTotal:    make(map[string]map[int]int64),
		httpRequestDurations: make(map[string][]float64),
		startTime:            time.Now(),
	}
}

// RecordUpstreamFetch counts one upstream call and whether it failed
func (m *Metrics) RecordUpstreamFetch(failed bool) {
	m.mu.Lock()
	m.UpstreamFetchesTotal++
	if failed {
		m.UpstreamErrorsTotal++
	}
	m.mu.Unlock()
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	if hit {
		m.CacheHitsTotal++
	} else {
		m.CacheMissesTotal++
	}
	m.mu.Unlock()
}

// RecordLoadCycle records a completed dashboard load
func (m *Metrics) RecordLoadCycle(duration time.Duration, rows int) {
	m.mu.Lock()
	m.LoadCyclesTotal++
	m.RowsServedTotal += int64(rows)
	m.lastLoadDuration = duration
	m.mu.Unlock()
}

// RecordLoadError increments the failed load counter
func (m *Metrics) RecordLoadError() {
	m.mu.Lock()
	m.LoadErrorsTotal++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// RecordRefreshCycle records one refresher tick
func (m *Metrics) RecordRefreshCycle(pushed int) {
	m.mu.Lock()
	m.RefreshCyclesTotal++
	m.DashboardsPushedTotal += int64(pushed)
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("activations_uptime_seconds", time.Since(m.startTime).Seconds())

		write("activations_upstream_fetches_total", m.UpstreamFetchesTotal)
		write("activations_upstream_errors_total", m.UpstreamErrorsTotal)
		write("activations_cache_hits_total", m.CacheHitsTotal)
		write("activations_cache_misses_total", m.CacheMissesTotal)

		write("activations_load_cycles_total", m.LoadCyclesTotal)
		write("activations_load_errors_total", m.LoadErrorsTotal)
		write("activations_rows_served_total", m.RowsServedTotal)
		write("activations_load_duration_seconds", m.lastLoadDuration.Seconds())

		write("activations_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("activations_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("activations_websocket_active_connections", m.activeConnections)
		write("activations_websocket_messages_total", m.WebSocketMessagesTotal)
		write("activations_websocket_errors_total", m.WebSocketErrorsTotal)

		write("activations_refresh_cycles_total", m.RefreshCyclesTotal)
		write("activations_dashboards_pushed_total", m.DashboardsPushedTotal)

		endpoints := make([]string, 0, len(m.httpRequestsTotal))
		for endpoint := range m.httpRequestsTotal {
			endpoints = append(endpoints, endpoint)
		}
		sort.Strings(endpoints)
		for _, endpoint := range endpoints {
			for status, count := range m.httpRequestsTotal[endpoint] {
				write("activations_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
