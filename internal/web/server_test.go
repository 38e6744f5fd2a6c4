package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/blob"
	"github.com/kozaktomas/face-registry/internal/cache"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database/mock"
	"github.com/kozaktomas/face-registry/internal/engine/local"
	"github.com/kozaktomas/face-registry/internal/quality"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local engine: %v", err)
	}
	blobs, err := blob.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}
	repo := mock.NewMockRepository()
	gate := quality.NewGate(quality.DefaultThresholds())

	cfg := config.Load()
	return NewServer(cfg, Deps{
		Enrollment: recognition.NewEnrollmentService(eng, blobs, repo, gate, recognition.Options{}),
		Identification: recognition.NewIdentificationService(eng, repo,
			cache.NewMemory(10, time.Minute), recognition.Options{}),
		Repository: repo,
	})
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/api/v1/health", http.StatusOK},
		{"list people", http.MethodGet, "/api/v1/people", http.StatusOK},
		{"search people", http.MethodGet, "/api/v1/people/search?q=novak", http.StatusOK},
		{"stats", http.MethodGet, "/api/v1/stats", http.StatusOK},
		{"missing person", http.MethodGet, "/api/v1/people/nobody", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v1/nothing", http.StatusNotFound},
		{"enroll without body", http.MethodPost, "/api/v1/enroll", http.StatusBadRequest},
		{"identify without body", http.MethodPost, "/api/v1/identify", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.status, rec.Code)
			}
		})
	}
}
