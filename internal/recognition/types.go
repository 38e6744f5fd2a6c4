// Package recognition orchestrates enrollment and identification
// across the matching engine, blob store, identity store and result
// cache.
package recognition

import (
	"time"

	"github.com/kozaktomas/face-registry/internal/constants"
	"github.com/kozaktomas/face-registry/internal/quality"
)

// Options are the tunable decision thresholds shared by the
// orchestrators. Zero values fall back to defaults.
type Options struct {
	// DuplicateThreshold is the similarity (0-100) above which an
	// enrollment probe is refused as already enrolled.
	DuplicateThreshold float64
	// MatchThreshold is the minimum similarity (0-100) the engine
	// applies before returning an identification candidate.
	MatchThreshold float64
	// MaxMatches caps candidates per identification.
	MaxMatches int
	// CacheTTL is the identification result cache lifetime.
	CacheTTL time.Duration
	// RequireLiveness additionally enforces the stricter anti-spoofing
	// gate during enrollment.
	RequireLiveness bool
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		DuplicateThreshold: constants.DefaultDuplicateThreshold,
		MatchThreshold:     constants.DefaultMatchThreshold,
		MaxMatches:         constants.DefaultMaxMatches,
		CacheTTL:           5 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DuplicateThreshold <= 0 {
		o.DuplicateThreshold = d.DuplicateThreshold
	}
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = d.MatchThreshold
	}
	if o.MaxMatches <= 0 {
		o.MaxMatches = d.MaxMatches
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = d.CacheTTL
	}
	return o
}

// DuplicateInfo identifies the already-enrolled person an enrollment
// probe collided with.
type DuplicateInfo struct {
	PersonID   string  `json:"person_id"`
	Similarity float64 `json:"similarity"`
}

// EnrollmentResult is the structured outcome of one enrollment
// attempt. Quality rejection and duplicate detection are decision
// outcomes, not errors: Success is false and the corresponding field
// carries the payload.
type EnrollmentResult struct {
	Success      bool            `json:"success"`
	PersonID     string          `json:"person_id,omitempty"`
	FaceID       string          `json:"face_id,omitempty"`
	QualityScore float64         `json:"quality_score,omitempty"`
	Duplicate    *DuplicateInfo  `json:"duplicate,omitempty"`
	Quality      *quality.Report `json:"quality,omitempty"`
	Message      string          `json:"message"`
}

// CandidateMatch is one ranked identification candidate. Confidence
// is the similarity rescaled to 0-1.
type CandidateMatch struct {
	PersonID     string            `json:"person_id"`
	DisplayName  string            `json:"display_name"`
	EngineFaceID string            `json:"engine_face_id"`
	Similarity   float64           `json:"similarity"`
	Confidence   float64           `json:"confidence"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	ResolvedAt   time.Time         `json:"resolved_at"`
}

// IdentificationResult is the outcome of one identification. An empty
// candidate list is a success, not an error.
type IdentificationResult struct {
	Success       bool             `json:"success"`
	FacesDetected int              `json:"faces_detected"`
	Candidates    []CandidateMatch `json:"candidates"`
	CacheHit      bool             `json:"cache_hit"`
	Message       string           `json:"message"`
}

// FaceResult is the outcome of adding an extra face to an existing
// person.
type FaceResult struct {
	Success      bool            `json:"success"`
	PersonID     string          `json:"person_id"`
	FaceID       string          `json:"face_id,omitempty"`
	QualityScore float64         `json:"quality_score,omitempty"`
	Quality      *quality.Report `json:"quality,omitempty"`
	Message      string          `json:"message"`
}
