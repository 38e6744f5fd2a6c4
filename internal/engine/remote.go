package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRemoteURL = "http://localhost:8000"

	retryAttempts  = 3
	retryBaseDelay = 200 * time.Millisecond
)

// Remote talks to a managed face-matching service over HTTP. The
// service owns detection, embedding extraction and the vector
// collection; this client only shuttles images and ids.
type Remote struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewRemote creates a client for the managed engine. The collection
// name scopes all index/search/delete calls.
func NewRemote(baseURL, collection string) *Remote {
	if baseURL == "" {
		baseURL = defaultRemoteURL
	}
	return &Remote{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type detectResponse struct {
	Faces []FaceDescriptor `json:"faces"`
}

type indexResponse struct {
	FaceID       string    `json:"face_id"`
	QualityScore float64   `json:"quality_score"`
	Embedding    []float32 `json:"embedding"`
	Error        string    `json:"error"`
}

type searchResponse struct {
	Matches []Match `json:"matches"`
}

// Detect finds faces in an image.
func (r *Remote) Detect(ctx context.Context, image []byte) ([]FaceDescriptor, error) {
	body, err := r.postMultipartImage(ctx, "/v1/detect", image, nil)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detect response: %w", err)
	}
	return resp.Faces, nil
}

// Index stores the most prominent face vector under externalID.
func (r *Remote) Index(ctx context.Context, image []byte, externalID string, maxFaces int) (*IndexedFace, error) {
	fields := map[string]string{
		"collection":  r.collection,
		"external_id": externalID,
		"max_faces":   strconv.Itoa(maxFaces),
	}
	body, err := r.postMultipartImage(ctx, "/v1/faces/index", image, fields)
	if err != nil {
		return nil, err
	}

	var resp indexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse index response: %w", err)
	}
	if resp.FaceID == "" {
		if resp.Error == "no_face_detected" {
			return nil, ErrNoFaceDetected
		}
		return nil, fmt.Errorf("engine rejected index request: %s", resp.Error)
	}

	return &IndexedFace{FaceID: resp.FaceID, QualityScore: resp.QualityScore, Embedding: resp.Embedding}, nil
}

// Search runs a 1:N search over the collection.
func (r *Remote) Search(ctx context.Context, image []byte, maxResults int, threshold float64) ([]Match, error) {
	fields := map[string]string{
		"collection":  r.collection,
		"max_results": strconv.Itoa(maxResults),
		"threshold":   strconv.FormatFloat(threshold, 'f', -1, 64),
	}
	body, err := r.postMultipartImage(ctx, "/v1/faces/search", image, fields)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return resp.Matches, nil
}

// Delete removes face vectors from the collection.
func (r *Remote) Delete(ctx context.Context, faceIDs []string) error {
	if len(faceIDs) == 0 {
		return nil
	}

	reqBody, err := json.Marshal(map[string]any{
		"collection": r.collection,
		"face_ids":   faceIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal delete request: %w", err)
	}

	return r.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/v1/faces", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return &transientError{err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return &transientError{fmt.Errorf("engine error (status %d)", resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return nil
	})
}

// postMultipartImage constructs a multipart form with the image data
// plus optional form fields and posts it to the given endpoint,
// retrying transient failures.
func (r *Remote) postMultipartImage(ctx context.Context, endpoint string, image []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(image))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	payload := buf.Bytes()
	contentType := writer.FormDataContentType()

	var body []byte
	err = r.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := r.client.Do(req)
		if err != nil {
			return &transientError{err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &transientError{fmt.Errorf("failed to read response: %w", err)}
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return &transientError{fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}

		body = respBody
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// transientError marks failures worth retrying (network errors, 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// withRetry runs fn with bounded exponential backoff. Only transient
// failures are retried; 4xx responses and context cancellation abort
// immediately. The last error is unwrapped so callers never see the
// transient marker.
func (r *Remote) withRetry(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 0; attempt < retryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		te, ok := err.(*transientError)
		if !ok {
			return err
		}
		lastErr = te.err

		if attempt == retryAttempts-1 {
			break
		}

		// Jitter spreads out concurrent retries.
		sleep := delay + time.Duration(rand.Int63n(int64(delay/2)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
	}

	return lastErr
}

// detectMIMEType detects the MIME type from image magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	return "application/octet-stream"
}
