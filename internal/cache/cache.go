// Package cache provides short-lived caching of identification
// results keyed by the probe image digest.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResultCache stores serialized identification results keyed by image
// digest. Implementations must be safe for concurrent use. A cache
// miss is not an error.
type ResultCache interface {
	// Get returns the cached payload for a key, or false when absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a payload under a key for the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases cache resources.
	Close() error
}

// Digest returns the sha256 hex digest of an image. Two byte-identical
// uploads always produce the same digest.
func Digest(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
