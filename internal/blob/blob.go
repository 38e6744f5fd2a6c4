// Package blob stores raw enrollment images. Keys are opaque handles;
// callers keep them in face records so the source image of every
// indexed vector stays retrievable.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("blob not found")

// Store is a content store for raw images.
type Store interface {
	// Put stores data and returns the assigned key. keyHint contributes
	// a readable prefix but never determines the key alone.
	Put(ctx context.Context, data []byte, keyHint string) (string, error)
	// Get retrieves a stored object.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a stored object. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// FileStore keeps blobs as flat files under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed blob store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("blob store directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Put stores data under a fresh key derived from the hint and a uuid.
func (s *FileStore) Put(ctx context.Context, data []byte, keyHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := sanitizeHint(keyHint) + "_" + uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return key, nil
}

// Get retrieves a stored object by key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.Base(key))) //nolint:gosec // key sanitized via filepath.Base
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Delete removes a stored object.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, filepath.Base(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// sanitizeHint reduces a key hint to a safe filename fragment.
func sanitizeHint(hint string) string {
	hint = filepath.Base(hint)
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}
