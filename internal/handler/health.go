package handler

import (
	"net/http"
	"time"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	store   string
	started time.Time
}

// NewHealthHandler reports which store backend is in use.
func NewHealthHandler(store string) *HealthHandler {
	return &HealthHandler{store: store, started: time.Now()}
}

// HandleHealth returns 200 with basic process info.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  h.store,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
