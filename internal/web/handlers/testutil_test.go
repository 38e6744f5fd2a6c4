package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/blob"
	"github.com/kozaktomas/face-registry/internal/cache"
	"github.com/kozaktomas/face-registry/internal/database/mock"
	"github.com/kozaktomas/face-registry/internal/engine/local"
	"github.com/kozaktomas/face-registry/internal/quality"
	"github.com/kozaktomas/face-registry/internal/recognition"
)

// testEnv bundles the services handler tests run against: a local
// engine, an in-memory repository and a temp-dir blob store.
type testEnv struct {
	repo       *mock.MockRepository
	enrollment *recognition.EnrollmentService
	identify   *recognition.IdentificationService
}

func newTestEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		repo:       repo,
		enrollment: recognition.NewEnrollmentService(eng, blobs, repo, gate, recognition.Options{}),
		identify: recognition.NewIdentificationService(eng, repo,
			cache.NewMemory(10, time.Minute), recognition.Options{}),
	}
}

// testImagePNG renders a synthetic gradient frame that passes the
// quality gate.
func testImagePNG(t *testing.T, seed uint8) []byte {
	t.Helper()

	const size = 200
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8((x + y + int(seed)*7) * 255 / (2 * size))
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart request with an optional image
// part and extra form fields.
func multipartRequest(t *testing.T, path string, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if imageData != nil {
		part, err := writer.CreateFormFile("image", "probe.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(imageData); err != nil {
			t.Fatalf("failed to write image part: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
