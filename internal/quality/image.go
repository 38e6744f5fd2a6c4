package quality

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

// decodeGray decodes an image and converts it to a 2D array of
// grayscale values (0-255), indexed [x][y].
func decodeGray(imageData []byte) ([][]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return toGrayscale(img), nil
}

// toGrayscale converts an image to grayscale luma values using the
// ITU-R BT.601 formula.
func toGrayscale(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}

	return gray
}

// resizeGray scales an image to the given square size and returns its
// grayscale matrix. Used before the DCT, which needs a fixed size.
func resizeGray(imageData []byte, size int) ([][]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return toGrayscale(dst), nil
}

// lumaStats returns the mean and standard deviation of a grayscale
// matrix. Mean is normalized to 0-1; the deviation stays on the 0-255
// scale, matching the contrast thresholds.
func lumaStats(gray [][]float64) (mean, stddev float64) {
	var sum float64
	var count int
	for x := range gray {
		for y := range gray[x] {
			sum += gray[x][y]
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	avg := sum / float64(count)

	var variance float64
	for x := range gray {
		for y := range gray[x] {
			d := gray[x][y] - avg
			variance += d * d
		}
	}
	variance /= float64(count)

	return avg / 255.0, math.Sqrt(variance)
}

// computeDCT computes the Discrete Cosine Transform of a square
// grayscale matrix (DCT-II).
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}

	// Precompute cosine values for efficiency.
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
