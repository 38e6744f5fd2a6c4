package recognition

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// testImage renders a synthetic gradient frame that passes the
// brightness and contrast gates.
func testImage(t *testing.T, seed uint8) []byte {
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

// darkImage renders a nearly black frame that fails the brightness
// gate.
func darkImage(t *testing.T) []byte {
	t.Helper()

	const size = 200
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x % 8)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func fullFrameFace() engine.FaceDescriptor {
	return engine.FaceDescriptor{
		BoundingBox: engine.BoundingBox{Left: 0, Top: 0, Width: 1, Height: 1},
		Confidence:  99,
		Quality:     engine.FaceQuality{Brightness: 50, Sharpness: 50},
	}
}

// fakeEngine is a scriptable engine.Engine for orchestrator tests.
type fakeEngine struct {
	mu sync.Mutex

	DetectFaces   []engine.FaceDescriptor
	DetectErr     error
	SearchMatches []engine.Match
	SearchErr     error
	IndexResult   *engine.IndexedFace
	IndexErr      error
	DeleteErr     error

	SearchCalls int
	IndexCalls  int
	DeletedIDs  []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		DetectFaces: []engine.FaceDescriptor{fullFrameFace()},
		IndexResult: &engine.IndexedFace{FaceID: "face-1", QualityScore: 0.9},
	}
}

func (f *fakeEngine) Detect(ctx context.Context, image []byte) ([]engine.FaceDescriptor, error) {
	if f.DetectErr != nil {
		return nil, f.DetectErr
	}
	return f.DetectFaces, nil
}

func (f *fakeEngine) Index(ctx context.Context, image []byte, externalID string, maxFaces int) (*engine.IndexedFace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IndexCalls++
	if f.IndexErr != nil {
		return nil, f.IndexErr
	}
	result := *f.IndexResult
	return &result, nil
}

func (f *fakeEngine) Search(ctx context.Context, image []byte, maxResults int, threshold float64) ([]engine.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls++
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	var matches []engine.Match
	for _, m := range f.SearchMatches {
		if m.Similarity >= threshold {
			matches = append(matches, m)
		}
	}
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

func (f *fakeEngine) Delete(ctx context.Context, faceIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.DeletedIDs = append(f.DeletedIDs, faceIDs...)
	return nil
}

var _ engine.Engine = (*fakeEngine)(nil)
