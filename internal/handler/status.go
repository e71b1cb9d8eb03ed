package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"ppemonitor/internal/stats"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONWithStatus(w, http.StatusOK, v)
}

func writeJSONWithStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusHandler handles GET /api/status with the latest compliance summary:
// {"total_people": N, "violations": M}.
func StatusHandler(latest *stats.Latest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, latest.Load())
	}
}

// ModelStatus reports whether a detection model is loaded.
type ModelStatus interface {
	ModelLoaded() bool
}

type healthResponse struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	ModelLoaded bool    `json:"model_loaded"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// HealthHandler handles GET /api/health.
func HealthHandler(model ModelStatus, latest *stats.Latest, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:      "ok",
			Uptime:      time.Since(started).Seconds(),
			ModelLoaded: model.ModelLoaded(),
		}
		if !resp.ModelLoaded {
			resp.Status = "degraded"
		}
		if at := latest.Snapshot().UpdatedAt; !at.IsZero() {
			resp.UpdatedAt = at.UTC().Format(time.RFC3339)
		}
		writeJSON(w, resp)
	}
}
