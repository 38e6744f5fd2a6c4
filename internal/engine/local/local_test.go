package local

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// testImage renders a deterministic gradient frame. Different seeds
// produce images far enough apart in embedding space to tell people
// apart.
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

func TestDetect(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	faces, err := eng.Detect(context.Background(), testImage(t, 1))
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected one face, got %d", len(faces))
	}
	if faces[0].BoundingBox.Width != 1 || faces[0].BoundingBox.Height != 1 {
		t.Errorf("expected full-frame bounding box, got %+v", faces[0].BoundingBox)
	}
	if faces[0].Confidence != 99.0 {
		t.Errorf("expected confidence 99, got %.1f", faces[0].Confidence)
	}
}

func TestDetectUndecodable(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if _, err := eng.Detect(context.Background(), []byte("garbage")); !errors.Is(err, engine.ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestIndexAndSearch(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	ctx := context.Background()

	img := testImage(t, 1)
	indexed, err := eng.Index(ctx, img, "person-1", 1)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if indexed.FaceID == "" {
		t.Fatal("expected a face id")
	}
	if len(indexed.Embedding) == 0 {
		t.Error("expected the indexed face to carry its embedding")
	}

	matches, err := eng.Search(ctx, img, 5, 80)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].ExternalID != "person-1" {
		t.Errorf("expected external id person-1, got %s", matches[0].ExternalID)
	}
	if matches[0].Similarity < 99.9 {
		t.Errorf("expected near-perfect similarity for the same image, got %.1f", matches[0].Similarity)
	}
}

func TestIndexUndecodable(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if _, err := eng.Index(context.Background(), []byte("garbage"), "person-1", 1); !errors.Is(err, engine.ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	matches, err := eng.Search(context.Background(), testImage(t, 1), 5, 80)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestSearchThresholdFilters(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	ctx := context.Background()

	if _, err := eng.Index(ctx, testImage(t, 1), "person-1", 1); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	matches, err := eng.Search(ctx, testImage(t, 1), 5, 101)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected threshold above 100 to filter everything, got %d matches", len(matches))
	}
}

func TestDelete(t *testing.T) {
	eng, err := New("")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	ctx := context.Background()

	img := testImage(t, 1)
	indexed, err := eng.Index(ctx, img, "person-1", 1)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if err := eng.Delete(ctx, []string{indexed.FaceID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	matches, err := eng.Search(ctx, img, 5, 80)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected deleted face to disappear from search, got %d matches", len(matches))
	}
	if eng.Count() != 0 {
		t.Errorf("expected count 0 after delete, got %d", eng.Count())
	}

	// Deleting unknown face ids is not an error.
	if err := eng.Delete(ctx, []string{"unknown"}); err != nil {
		t.Errorf("expected idempotent delete, got %v", err)
	}
}

func TestPersistenceReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	eng, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if _, err := eng.Index(ctx, testImage(t, 1), "person-1", 1); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if _, err := eng.Index(ctx, testImage(t, 2), "person-2", 1); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	reloaded, err := New(dir)
	if err != nil {
		t.Fatalf("failed to reload engine: %v", err)
	}
	if reloaded.Count() != 2 {
		t.Fatalf("expected 2 faces after reload, got %d", reloaded.Count())
	}

	matches, err := reloaded.Search(ctx, testImage(t, 1), 1, 80)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ExternalID != "person-1" {
		t.Errorf("expected person-1 from the reloaded collection, got %+v", matches)
	}
}
