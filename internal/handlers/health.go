package handlers

import (
	"net/http"
	"runtime"
	"time"

	"video-compressor/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	EngineAvailable bool `json:"engineAvailable"`
	MemoryPaused    bool `json:"memoryPaused"`

	ActiveSessions int            `json:"activeSessions"`
	SessionsBy     map[string]int `json:"sessionsByStage,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// ready reports whether new compressions can be accepted.
func (h *Handlers) ready() bool {
	return h.engineAvailable && !h.memory.IsPaused()
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.sessions.GetStats()

	response := HealthResponse{
		Status:          statusHealthy,
		Ready:           h.ready(),
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		EngineAvailable: h.engineAvailable,
		MemoryPaused:    h.memory.IsPaused(),
		ActiveSessions:  stats.ActiveSessions,
		SessionsBy:      stats.ByStage,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}
	if !response.Ready {
		response.Status = statusDegraded
	}

	// The process itself is fine even when degraded; readiness reports
	// whether it should receive traffic.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.ready() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
