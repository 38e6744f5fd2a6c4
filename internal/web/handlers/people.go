package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

// PeopleHandler handles person record endpoints.
type PeopleHandler struct {
	repo       database.Repository
	enrollment *recognition.EnrollmentService
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(repo database.Repository, enrollment *recognition.EnrollmentService) *PeopleHandler {
	return &PeopleHandler{repo: repo, enrollment: enrollment}
}

// List returns all people, or a substring search when "q" is set.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	var people []database.Person
	var err error

	if q := r.URL.Query().Get("q"); q != "" {
		people, err = h.repo.SearchPeople(r.Context(), q)
	} else {
		people, err = h.repo.ListPeople(r.Context())
	}
	if err != nil {
		log.Printf("list people failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "failed to list people")
		return
	}

	if people == nil {
		people = []database.Person{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"people": people,
		"count":  len(people),
	})
}

// Get returns one person with its face records.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	person, err := h.repo.GetPerson(r.Context(), id)
	if err != nil {
		log.Printf("get person %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusServiceUnavailable, "failed to load person")
		return
	}
	if person == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	records, err := h.repo.GetFaceRecords(r.Context(), id)
	if err != nil {
		log.Printf("get face records for %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusServiceUnavailable, "failed to load face records")
		return
	}
	if records == nil {
		records = []database.FaceRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"person": person,
		"faces":  records,
	})
}

type updatePersonRequest struct {
	DisplayName *string           `json:"display_name"`
	Attributes  map[string]string `json:"attributes"`
}

// Update changes a person's display name and attributes. The id is
// immutable.
func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.repo.GetPerson(r.Context(), id)
	if err != nil {
		log.Printf("get person %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusServiceUnavailable, "failed to load person")
		return
	}
	if person == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			respondError(w, http.StatusBadRequest, "display_name must not be empty")
			return
		}
		person.DisplayName = *req.DisplayName
	}
	if req.Attributes != nil {
		person.Attributes = req.Attributes
	}

	if err := h.repo.UpdatePerson(r.Context(), person); err != nil {
		log.Printf("update person %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusServiceUnavailable, "failed to update person")
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// Delete removes a person everywhere: engine vectors, stored images
// and the identity record.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.enrollment.RemovePerson(r.Context(), id); err != nil {
		log.Printf("delete person %s failed: %v", sanitizeForLog(id), err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
