package database

import (
	"time"
)

// Person is an enrolled identity's metadata record. ID is globally
// unique and immutable once assigned; the display name is a mutable
// attribute, never an identifier.
type Person struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	EmbeddingCount int               `json:"embedding_count"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// FaceRecord links a person to a stored source image and an
// engine-side face vector. A face record never outlives its person.
type FaceRecord struct {
	ID           int64     `json:"id"`
	PersonID     string    `json:"person_id"`
	EngineFaceID string    `json:"engine_face_id"`
	BlobKey      string    `json:"blob_key"`
	QualityScore float64   `json:"quality_score"`
	Embedding    []float32 `json:"-"` // optional copy of the engine vector
	CreatedAt    time.Time `json:"created_at"`
}

// MatchRecord is an append-only audit entry for one resolved
// candidate. Written best-effort after identification.
type MatchRecord struct {
	ID           int64     `json:"id"`
	PersonID     string    `json:"person_id"`
	EngineFaceID string    `json:"engine_face_id"`
	Similarity   float64   `json:"similarity"`
	Confidence   float64   `json:"confidence"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Stats summarizes gallery size.
type Stats struct {
	People      int     `json:"people"`
	FaceRecords int     `json:"face_records"`
	AvgFaces    float64 `json:"avg_faces_per_person"`
}
