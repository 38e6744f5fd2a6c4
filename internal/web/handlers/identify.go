package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-registry/internal/recognition"
)

// IdentifyHandler handles identification endpoints.
type IdentifyHandler struct {
	identification *recognition.IdentificationService
}

// NewIdentifyHandler creates a new identification handler.
func NewIdentifyHandler(identification *recognition.IdentificationService) *IdentifyHandler {
	return &IdentifyHandler{identification: identification}
}

// Identify resolves a probe image to ranked candidates. The probe is
// either a multipart "image" file or a raw image/* body. Options come
// from form or query values: "max_results" (alias "top_k"),
// "threshold" and "use_cache" (alias "no_cache"). An empty candidate
// list is a 200, not an error.
func (h *IdentifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxResults := formInt(r, "max_results", formInt(r, "top_k", 0))
	threshold := formFloat(r, "threshold", 0)
	useCache := formBool(r, "use_cache", !formBool(r, "no_cache", false))

	result, err := h.identification.Identify(r.Context(), image, maxResults, threshold, useCache)
	if err != nil {
		log.Printf("identify failed: %v", err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
