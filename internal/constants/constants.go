// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum accepted image payload in bytes
	MaxUploadSize = 15 << 20

	// MaxEnrollFaces caps indexed faces per enrollment image
	MaxEnrollFaces = 1
)

// Matching constants
const (
	// DefaultDuplicateThreshold is the similarity (0-100) above which an
	// enrollment probe is treated as an already-enrolled person
	DefaultDuplicateThreshold = 95.0

	// DefaultMatchThreshold is the minimum similarity (0-100) for an
	// identification candidate
	DefaultMatchThreshold = 80.0

	// DefaultMaxMatches is the default candidate cap per identification
	DefaultMaxMatches = 5
)

// Processing constants
const (
	// ImportWorkerPoolSize is the number of parallel workers for bulk imports
	ImportWorkerPoolSize = 4

	// AuditWriteTimeout bounds the best-effort audit write in seconds
	AuditWriteTimeout = 5
)
