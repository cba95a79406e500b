package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/valve-bridge/internal/bridge"
)

// healthCheckTimeout bounds each dependency check made by GET /status.
const healthCheckTimeout = 2 * time.Second

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Timestamp     string                      `json:"timestamp"`
	Version       string                      `json:"version"`
	UptimeSeconds int64                       `json:"uptime_seconds"`
	Runtime       RuntimeStatus               `json:"runtime"`
	Bridge        *bridge.Status              `json:"bridge,omitempty"`
	Valves        ValveStatus                 `json:"valves"`
	Dependencies  map[string]DependencyStatus `json:"dependencies"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ValveStatus contains valve registry statistics.
type ValveStatus struct {
	Total int `json:"total"`
}

// DependencyStatus is the result of one backing-service health check.
type DependencyStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// handleStatus returns the bridge slots, valve count, runtime statistics
// and the health of each configured backing service.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Valves: ValveStatus{
			Total: s.valves.Count(),
		},
		Dependencies: s.checkDependencies(r.Context()),
	}

	if s.bridge != nil {
		st := s.bridge.Status()
		resp.Bridge = &st
	}

	writeJSON(w, http.StatusOK, resp)
}

// checkDependencies runs the configured health checks one at a time.
func (s *Server) checkDependencies(ctx context.Context) map[string]DependencyStatus {
	out := make(map[string]DependencyStatus, len(s.checks))
	for name, checker := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := checker.HealthCheck(checkCtx)
		cancel()

		st := DependencyStatus{Healthy: err == nil}
		if err != nil {
			st.Error = err.Error()
		}
		out[name] = st
	}
	return out
}
