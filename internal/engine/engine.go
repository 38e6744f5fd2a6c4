package engine

import (
	"context"
	"errors"
)

// ErrNoFaceDetected is returned by Index when the engine finds no face
// in the submitted image. Search treats a missing face as an empty
// result instead, matching the managed engine's behavior.
var ErrNoFaceDetected = errors.New("no face detected")

// BoundingBox describes a detected face location in relative
// coordinates (0-1 of image width/height).
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceQuality carries the engine's own quality estimate on a 0-100 scale.
type FaceQuality struct {
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
}

// Pose describes head orientation in degrees.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// FaceDescriptor is a single detected face with its quality metadata.
type FaceDescriptor struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Quality     FaceQuality `json:"quality"`
	Pose        Pose        `json:"pose"`
}

// IndexedFace is the result of indexing a face into the collection.
// Embedding carries the stored vector when the engine exposes it, so
// callers can keep a copy next to their own records.
type IndexedFace struct {
	FaceID       string    `json:"face_id"`
	QualityScore float64   `json:"quality_score"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// Match is a single nearest-neighbor hit from the face collection.
// Similarity is on a 0-100 scale.
type Match struct {
	FaceID     string  `json:"face_id"`
	ExternalID string  `json:"external_id"`
	Similarity float64 `json:"similarity"`
}

// Engine is the face-matching capability consumed by the orchestrators.
// Implementations must be safe for concurrent use; every method is a
// potentially blocking call and honors context cancellation.
type Engine interface {
	// Detect finds faces in an image without touching the collection.
	Detect(ctx context.Context, image []byte) ([]FaceDescriptor, error)

	// Index extracts the most prominent face and stores its vector in
	// the collection under externalID. Returns ErrNoFaceDetected when
	// the image contains no usable face.
	Index(ctx context.Context, image []byte, externalID string, maxFaces int) (*IndexedFace, error)

	// Search runs a 1:N search over the collection. A no-face probe or
	// an empty collection yields an empty slice, not an error. The
	// engine applies threshold (0-100) before returning matches.
	Search(ctx context.Context, image []byte, maxResults int, threshold float64) ([]Match, error)

	// Delete removes the given face vectors from the collection.
	Delete(ctx context.Context, faceIDs []string) error
}
