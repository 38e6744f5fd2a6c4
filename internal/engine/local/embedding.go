package local

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	// Embeddings are built from the low-frequency block of a DCT over a
	// downscaled grayscale image. 32x32 input with the DC component
	// dropped leaves plenty of coefficients for a 128-dim vector.
	embedInputSize = 32
	embedDim       = 128
)

// computeEmbedding derives a deterministic, L2-normalized feature
// vector from image pixels. It is not a neural face embedding, but it
// is stable (identical bytes produce identical vectors) and smooth
// enough for the in-process collection to behave like the managed one
// in tests and local deployments.
func computeEmbedding(imageData []byte) ([]float32, error) {
	gray, err := decodeGrayResized(imageData, embedInputSize)
	if err != nil {
		return nil, err
	}

	dct := computeDCT(gray)

	// Walk the DCT in diagonal (zig-zag) order so the vector front-loads
	// low frequencies, skipping the DC component.
	vec := make([]float32, 0, embedDim)
	for s := 1; s < 2*embedInputSize-1 && len(vec) < embedDim; s++ {
		for u := 0; u <= s && len(vec) < embedDim; u++ {
			v := s - u
			if u >= embedInputSize || v >= embedInputSize {
				continue
			}
			vec = append(vec, float32(dct[u][v]))
		}
	}

	normalize(vec)
	return vec, nil
}

// normalize scales a vector to unit length in place.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// cosineDistance computes the cosine distance between two vectors.
// Returns 2 (maximum) for invalid input.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// decodeGrayResized decodes an image, scales it to a square of the
// given size and returns grayscale luma values indexed [x][y].
func decodeGrayResized(imageData []byte, size int) ([][]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	gray := make([][]float64, size)
	for x := range size {
		gray[x] = make([]float64, size)
		for y := range size {
			r, g, b, _ := dst.At(x, y).RGBA()
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	return gray, nil
}

// computeDCT computes the Discrete Cosine Transform of a square
// grayscale matrix (DCT-II).
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	for u := range size {
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}

	return dct
}

// imageStats returns mean luma (0-1) and Laplacian variance for a
// grayscale matrix. Used to fabricate the engine quality descriptor.
func imageStats(gray [][]float64) (brightness, laplacianVar float64) {
	width := len(gray)
	if width == 0 {
		return 0, 0
	}
	height := len(gray[0])

	var sum float64
	for x := range width {
		for y := range height {
			sum += gray[x][y]
		}
	}
	brightness = sum / float64(width*height) / 255.0

	if width < 3 || height < 3 {
		return brightness, 0
	}

	var lapSum, lapSumSq float64
	var count int
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			lap := gray[x-1][y] + gray[x+1][y] + gray[x][y-1] + gray[x][y+1] - 4*gray[x][y]
			lapSum += lap
			lapSumSq += lap * lap
			count++
		}
	}
	mean := lapSum / float64(count)
	laplacianVar = lapSumSq/float64(count) - mean*mean

	return brightness, laplacianVar
}
