package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/recognition"
)

// EnrollHandler handles enrollment endpoints.
type EnrollHandler struct {
	enrollment *recognition.EnrollmentService
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(enrollment *recognition.EnrollmentService) *EnrollHandler {
	return &EnrollHandler{enrollment: enrollment}
}

// Enroll registers a new person from a multipart form with an "image"
// file, a "display_name" field and optional "attributes" (JSON
// object), "check_duplicate" and "duplicate_threshold" fields. Quality
// rejections and duplicates are reported with 409, infrastructure
// failures with 503.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	displayName := r.FormValue("display_name")
	if displayName == "" {
		respondError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	var attributes map[string]string
	if raw := r.FormValue("attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
			respondError(w, http.StatusBadRequest, "attributes must be a JSON object of strings")
			return
		}
	}

	checkDuplicate := formBool(r, "check_duplicate", true)
	duplicateThreshold := formFloat(r, "duplicate_threshold", 0)

	result, err := h.enrollment.Enroll(r.Context(), image, displayName, attributes, checkDuplicate, duplicateThreshold)
	if err != nil {
		log.Printf("enroll failed for %s: %v", sanitizeForLog(displayName), err)
		respondServiceError(w, err)
		return
	}

	if !result.Success {
		respondJSON(w, http.StatusConflict, result)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// AddFace indexes an additional face image for an existing person.
func (h *EnrollHandler) AddFace(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")

	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.enrollment.AddFace(r.Context(), personID, image)
	if err != nil {
		log.Printf("add face failed for %s: %v", sanitizeForLog(personID), err)
		respondServiceError(w, err)
		return
	}

	if !result.Success {
		respondJSON(w, http.StatusConflict, result)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
