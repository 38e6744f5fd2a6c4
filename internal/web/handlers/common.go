package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps orchestrator errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recognition.ErrPersonNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, recognition.ErrEngineUnavailable),
		errors.Is(err, recognition.ErrStoreUnavailable),
		errors.Is(err, recognition.ErrIndexingFailed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

// readImageFile extracts the uploaded image from a multipart form, or
// from the raw request body when the client posts the image directly
// with an image/* content type.
func readImageFile(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "image/") {
		data, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxUploadSize+1))
		if err != nil {
			return nil, errors.New("failed to read request body")
		}
		if len(data) == 0 {
			return nil, errors.New("image data is required")
		}
		if len(data) > constants.MaxUploadSize {
			return nil, fmt.Errorf("image exceeds maximum size of %d bytes", constants.MaxUploadSize)
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	defer file.Close()

	if header.Size > constants.MaxUploadSize {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", constants.MaxUploadSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, errors.New("failed to read image file")
	}
	if len(data) > constants.MaxUploadSize {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", constants.MaxUploadSize)
	}
	return data, nil
}

// formFloat parses an optional float form value.
func formFloat(r *http.Request, key string, defaultVal float64) float64 {
	s := r.FormValue(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// formInt parses an optional integer form value.
func formInt(r *http.Request, key string, defaultVal int) int {
	s := r.FormValue(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// formBool parses an optional boolean form value.
func formBool(r *http.Request, key string, defaultVal bool) bool {
	s := r.FormValue(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}
