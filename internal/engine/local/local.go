// Package local provides an in-process implementation of the face
// matching engine interface. Detection and embedding extraction are
// approximated with deterministic image features, and the collection
// is an HNSW graph over those vectors, optionally persisted one
// directory per identity. It exists so the orchestrators can run
// without the managed engine: in tests, demos and single-node
// deployments.
package local

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// HNSW parameters for the local collection.
const (
	hnswMaxNeighbors = 16
	hnswSearchExtra  = 3 // request extra candidates to survive filtering
)

type faceEntry struct {
	FaceID       string
	ExternalID   string
	QualityScore float64
	Embedding    []float32
}

// Local is an in-process face collection implementing engine.Engine.
type Local struct {
	mu       sync.RWMutex
	dir      string // persistence root, "" for memory-only
	graph    *hnsw.Graph[int64]
	nextID   int64
	faces    map[int64]*faceEntry
	byFaceID map[string]int64
	dirNames map[string]string // external id -> directory name
}

// New creates a local engine. When dir is non-empty, previously
// persisted identities are loaded and future writes are mirrored to
// disk.
func New(dir string) (*Local, error) {
	l := &Local{
		dir:      dir,
		faces:    make(map[int64]*faceEntry),
		byFaceID: make(map[string]int64),
		dirNames: make(map[string]string),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading local face collection: %w", err)
	}

	return l, nil
}

// addEntry registers a face in the graph and lookup maps. Caller must
// hold the write lock.
func (l *Local) addEntry(entry *faceEntry) {
	if l.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = hnswMaxNeighbors
		g.Ml = 1.0 / float64(hnswMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		l.graph = g
	}

	l.nextID++
	id := l.nextID
	l.graph.Add(hnsw.MakeNode(id, entry.Embedding))
	l.faces[id] = entry
	l.byFaceID[entry.FaceID] = id
}

// idsByExternal returns graph ids for an external id in insertion
// order. Caller must hold at least the read lock.
func (l *Local) idsByExternal(externalID string) []int64 {
	var ids []int64
	for id, entry := range l.faces {
		if entry.ExternalID == externalID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Detect reports a single full-frame face with quality estimates
// derived from pixel statistics. The local engine has no face
// detector; treating the whole image as one face keeps the interface
// contract intact for the quality gate and the orchestrators.
func (l *Local) Detect(ctx context.Context, image []byte) ([]engine.FaceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray, err := decodeGrayResized(image, embedInputSize)
	if err != nil {
		return nil, engine.ErrNoFaceDetected
	}

	brightness, laplacianVar := imageStats(gray)
	sharpness := laplacianVar
	if sharpness > 100 {
		sharpness = 100
	}

	return []engine.FaceDescriptor{{
		BoundingBox: engine.BoundingBox{Left: 0, Top: 0, Width: 1, Height: 1},
		Confidence:  99.0,
		Quality: engine.FaceQuality{
			Brightness: brightness * 100,
			Sharpness:  sharpness,
		},
	}}, nil
}

// Index extracts the embedding and stores it under externalID.
func (l *Local) Index(ctx context.Context, image []byte, externalID string, maxFaces int) (*engine.IndexedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec, err := computeEmbedding(image)
	if err != nil {
		return nil, engine.ErrNoFaceDetected
	}

	gray, err := decodeGrayResized(image, embedInputSize)
	if err != nil {
		return nil, engine.ErrNoFaceDetected
	}
	_, laplacianVar := imageStats(gray)
	qualityScore := laplacianVar
	if qualityScore > 100 {
		qualityScore = 100
	}

	entry := &faceEntry{
		FaceID:       uuid.NewString(),
		ExternalID:   externalID,
		QualityScore: qualityScore,
		Embedding:    vec,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.addEntry(entry)
	if err := l.persistPerson(externalID); err != nil {
		return nil, fmt.Errorf("persisting face collection: %w", err)
	}

	return &engine.IndexedFace{FaceID: entry.FaceID, QualityScore: qualityScore, Embedding: vec}, nil
}

// Search runs a nearest-neighbor query over the collection. An
// undecodable probe or an empty collection yields an empty result.
func (l *Local) Search(ctx context.Context, image []byte, maxResults int, threshold float64) ([]engine.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	vec, err := computeEmbedding(image)
	if err != nil {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.graph == nil {
		return nil, nil
	}

	neighbors := l.graph.Search(vec, maxResults*hnswSearchExtra)

	var matches []engine.Match
	for _, n := range neighbors {
		entry, ok := l.faces[n.Key]
		if !ok {
			// Deleted face still present in the graph; filtered here.
			continue
		}

		similarity := (1 - cosineDistance(vec, n.Value)) * 100
		if similarity < threshold {
			continue
		}

		matches = append(matches, engine.Match{
			FaceID:     entry.FaceID,
			ExternalID: entry.ExternalID,
			Similarity: similarity,
		})
		if len(matches) == maxResults {
			break
		}
	}

	return matches, nil
}

// Delete removes face vectors from the collection. HNSW does not
// support true deletion; removing the lookup entries hides the nodes
// from search results, and the persisted copy is rewritten without
// them.
func (l *Local) Delete(ctx context.Context, faceIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	touched := make(map[string]bool)
	for _, faceID := range faceIDs {
		id, ok := l.byFaceID[faceID]
		if !ok {
			continue
		}
		touched[l.faces[id].ExternalID] = true
		delete(l.faces, id)
		delete(l.byFaceID, faceID)
	}

	for externalID := range touched {
		if err := l.persistPerson(externalID); err != nil {
			return fmt.Errorf("persisting face collection: %w", err)
		}
	}

	return nil
}

// Count returns the number of indexed faces.
func (l *Local) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.faces)
}
