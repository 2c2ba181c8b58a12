package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/harvester/internal/server/response"
	"github.com/agentstation/harvester/pkg/constants"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "harvester",
		"version": constants.HarvesterVersion,
	})
}

// HandleReady handles GET /ready. The server is ready once sources are loaded.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	n := h.client.Sources().Len()
	if n == 0 {
		response.ServiceUnavailable(w, "No harvest sources configured")
		return
	}

	response.OK(w, map[string]any{
		"status":         "ready",
		"sources":        n,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"cache":          h.cache.GetStats(),
	})
}
