package local

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Per-identity on-disk layout: one directory per external id holding a
// JSON attribute record and the stacked embedding vectors as raw
// little-endian float32s.
const (
	infoFileName       = "info.json"
	embeddingsFileName = "embeddings.bin"
)

// personInfo is the JSON record stored next to the embeddings.
type personInfo struct {
	ExternalID string           `json:"external_id"`
	Dim        int              `json:"dim"`
	Faces      []personInfoFace `json:"faces"`
}

type personInfoFace struct {
	FaceID       string  `json:"face_id"`
	QualityScore float64 `json:"quality_score"`
}

// sanitizeDirName reduces an external id to a filesystem-safe name.
func sanitizeDirName(externalID string) string {
	var b strings.Builder
	for _, r := range externalID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "person"
	}
	return b.String()
}

// dirNameFor returns the directory name assigned to an external id,
// allocating a new one on first use. Name collisions between distinct
// ids are resolved deterministically by appending _1, _2, ... instead
// of overwriting. Caller must hold the write lock.
func (l *Local) dirNameFor(externalID string) string {
	if name, ok := l.dirNames[externalID]; ok {
		return name
	}

	base := sanitizeDirName(externalID)
	name := base
	for i := 1; l.dirTaken(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	l.dirNames[externalID] = name
	return name
}

func (l *Local) dirTaken(name string) bool {
	for _, existing := range l.dirNames {
		if existing == name {
			return true
		}
	}
	return false
}

// persistPerson writes the info record and embedding stack for one
// external id. A no-op when the engine runs memory-only.
func (l *Local) persistPerson(externalID string) error {
	if l.dir == "" {
		return nil
	}

	var info personInfo
	info.ExternalID = externalID
	info.Dim = embedDim

	var vectors [][]float32
	for _, id := range l.idsByExternal(externalID) {
		entry := l.faces[id]
		info.Faces = append(info.Faces, personInfoFace{
			FaceID:       entry.FaceID,
			QualityScore: entry.QualityScore,
		})
		vectors = append(vectors, entry.Embedding)
	}

	personDir := filepath.Join(l.dir, l.dirNameFor(externalID))

	if len(info.Faces) == 0 {
		// Last face removed; drop the whole directory.
		delete(l.dirNames, externalID)
		if err := os.RemoveAll(personDir); err != nil {
			return fmt.Errorf("failed to remove person directory: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(personDir, 0o750); err != nil {
		return fmt.Errorf("failed to create person directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal person info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(personDir, infoFileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write person info: %w", err)
	}

	buf := make([]byte, 0, len(vectors)*embedDim*4)
	for _, vec := range vectors {
		for _, v := range vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	if err := os.WriteFile(filepath.Join(personDir, embeddingsFileName), buf, 0o600); err != nil {
		return fmt.Errorf("failed to write embeddings: %w", err)
	}

	return nil
}

// loadAll restores all persisted identities into the in-memory index.
// Caller must hold the write lock.
func (l *Local) loadAll() error {
	if l.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collection directory: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := l.loadPerson(e.Name()); err != nil {
			return fmt.Errorf("loading %s: %w", e.Name(), err)
		}
	}

	return nil
}

func (l *Local) loadPerson(dirName string) error {
	personDir := filepath.Join(l.dir, dirName)

	data, err := os.ReadFile(filepath.Join(personDir, infoFileName)) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to read person info: %w", err)
	}

	var info personInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("failed to unmarshal person info: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(personDir, embeddingsFileName)) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to read embeddings: %w", err)
	}

	dim := info.Dim
	if dim == 0 {
		dim = embedDim
	}
	if len(raw) != len(info.Faces)*dim*4 {
		return fmt.Errorf("embeddings file size mismatch: got %d bytes for %d faces of dim %d",
			len(raw), len(info.Faces), dim)
	}

	l.dirNames[info.ExternalID] = dirName

	for i, face := range info.Faces {
		vec := make([]float32, dim)
		for j := range dim {
			bits := binary.LittleEndian.Uint32(raw[(i*dim+j)*4:])
			vec[j] = math.Float32frombits(bits)
		}
		l.addEntry(&faceEntry{
			FaceID:       face.FaceID,
			ExternalID:   info.ExternalID,
			QualityScore: face.QualityScore,
			Embedding:    vec,
		})
	}

	return nil
}
