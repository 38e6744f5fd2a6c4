package quality

import (
	"math"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// Liveness sub-score weights. The composite must clear livenessPass
// before a probe is accepted as a live subject.
const (
	weightTexture     = 0.35
	weightDepth       = 0.30
	weightQuality     = 0.20
	weightFaceQuality = 0.15

	depthDCTSize    = 64
	depthCutoffFrac = 0.3
)

// textureScore measures edge energy via Laplacian variance. Printed
// photos and screens have flatter texture than live skin, which drives
// the variance down.
func textureScore(gray [][]float64) float64 {
	width := len(gray)
	if width < 3 {
		return 0
	}
	height := len(gray[0])
	if height < 3 {
		return 0
	}

	var sum, sumSq float64
	var count int
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			// 4-neighbor Laplacian kernel.
			lap := gray[x-1][y] + gray[x+1][y] + gray[x][y-1] + gray[x][y+1] - 4*gray[x][y]
			sum += lap
			sumSq += lap * lap
			count++
		}
	}
	if count == 0 {
		return 0
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean

	return clamp01(variance / 100.0)
}

// depthScore estimates how much high-frequency detail the image
// carries. Flat 2-D surfaces (screens, printouts) concentrate their
// energy in low frequencies, so a low score suggests a replay attack.
func depthScore(imageData []byte) float64 {
	gray, err := resizeGray(imageData, depthDCTSize)
	if err != nil {
		return 0.5
	}

	dct := computeDCT(gray)
	cutoff := float64(depthDCTSize) * depthCutoffFrac

	var energy float64
	var count int
	for u := range depthDCTSize {
		for v := range depthDCTSize {
			// Skip the low-frequency block near the origin.
			if math.Hypot(float64(u), float64(v)) <= cutoff {
				continue
			}
			energy += 20 * math.Log(math.Abs(dct[u][v])+1)
			count++
		}
	}
	if count == 0 {
		return 0.5
	}

	return clamp01(energy / float64(count) / 50.0)
}

// edgeDensity returns the fraction of pixels with strong gradients,
// computed with a Sobel operator.
func edgeDensity(gray [][]float64) float64 {
	width := len(gray)
	if width < 3 {
		return 0
	}
	height := len(gray[0])
	if height < 3 {
		return 0
	}

	const edgeThreshold = 100.0

	var edges, total int
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			gx := gray[x+1][y-1] + 2*gray[x+1][y] + gray[x+1][y+1] -
				gray[x-1][y-1] - 2*gray[x-1][y] - gray[x-1][y+1]
			gy := gray[x-1][y+1] + 2*gray[x][y+1] + gray[x+1][y+1] -
				gray[x-1][y-1] - 2*gray[x][y-1] - gray[x+1][y-1]
			if math.Hypot(gx, gy) > edgeThreshold {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}

	return float64(edges) / float64(total)
}

// compositeQualityScore combines brightness, contrast and sharpness
// into a single 0-1 quality indicator.
func (g *Gate) compositeQualityScore(brightness, contrast float64, gray [][]float64) float64 {
	brightnessScore := 0.5
	if brightness >= g.thresholds.MinBrightness && brightness <= g.thresholds.MaxBrightness {
		brightnessScore = 1.0
	}

	contrastScore := clamp01(contrast / 50.0)
	sharpnessScore := clamp01(edgeDensity(gray) * 10)

	return brightnessScore*0.3 + contrastScore*0.4 + sharpnessScore*0.3
}

// faceQualityScore grades the engine-reported face quality descriptor.
// Returns 0.5 when no descriptor is available, a neutral value that
// neither helps nor sinks the composite.
func faceQualityScore(desc *engine.FaceDescriptor) float64 {
	if desc == nil {
		return 0.5
	}

	brightness := desc.Quality.Brightness / 100.0
	sharpness := desc.Quality.Sharpness / 100.0

	maxAngle := math.Max(math.Abs(desc.Pose.Yaw), math.Abs(desc.Pose.Pitch))
	poseScore := math.Max(0, 1.0-maxAngle/45.0)

	confidence := desc.Confidence / 100.0

	return brightness*0.2 + sharpness*0.3 + poseScore*0.2 + confidence*0.3
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
