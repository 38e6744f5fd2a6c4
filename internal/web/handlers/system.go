package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

// SystemHandler handles health and stats endpoints.
type SystemHandler struct {
	repo       database.Repository
	enrollment *recognition.EnrollmentService
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(repo database.Repository, enrollment *recognition.EnrollmentService) *SystemHandler {
	return &SystemHandler{repo: repo, enrollment: enrollment}
}

// Health reports store connectivity.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Health(r.Context()); err != nil {
		log.Printf("health check failed: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Stats summarizes the enrolled gallery.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.enrollment.Stats(r.Context())
	if err != nil {
		log.Printf("stats failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
