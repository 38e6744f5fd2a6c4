// Package quality scores face images before they reach the matching
// engine. All checks are pure functions over the supplied bytes and
// optional engine detection metadata; a Gate holds only thresholds and
// is safe for concurrent use.
package quality

import (
	"fmt"
	"math"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// Thresholds configures the quality and liveness gates.
type Thresholds struct {
	MinBrightness float64 `yaml:"min_brightness"`
	MaxBrightness float64 `yaml:"max_brightness"`
	MinContrast   float64 `yaml:"min_contrast"`
	MinFaceSize   int     `yaml:"min_face_size"`
	MaxHeadPose   float64 `yaml:"max_head_pose"`
	LivenessPass  float64 `yaml:"liveness_pass"`
}

// DefaultThresholds returns the stock gate configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBrightness: 0.2,
		MaxBrightness: 0.8,
		MinContrast:   20.0,
		MinFaceSize:   100,
		MaxHeadPose:   30.0,
		LivenessPass:  0.95,
	}
}

// Report is the outcome of evaluating one image.
type Report struct {
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	FaceWidth   int     `json:"face_width,omitempty"`
	FaceHeight  int     `json:"face_height,omitempty"`
	HeadPoseDeg float64 `json:"head_pose_deg,omitempty"`

	TextureScore     float64 `json:"texture_score"`
	DepthScore       float64 `json:"depth_score"`
	QualityScore     float64 `json:"quality_score"`
	FaceQualityScore float64 `json:"face_quality_score"`
	LivenessScore    float64 `json:"liveness_score"`

	// Valid aggregates the basic brightness/contrast/size/pose checks.
	// Live is the stricter anti-spoofing gate on the liveness score.
	// Callers choose which one to enforce.
	Valid bool `json:"valid"`
	Live  bool `json:"live"`

	Reasons []string `json:"reasons,omitempty"`
}

// Gate evaluates image quality against configured thresholds.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a quality gate.
func NewGate(t Thresholds) *Gate {
	return &Gate{thresholds: t}
}

// Evaluate scores an image. The face descriptor is optional: when nil,
// the face-size and head-pose checks are skipped and excluded from the
// Valid aggregate, since only the engine's detection step can supply
// them.
func (g *Gate) Evaluate(imageData []byte, desc *engine.FaceDescriptor) Report {
	report := Report{}

	gray, err := decodeGray(imageData)
	if err != nil {
		report.Reasons = append(report.Reasons, fmt.Sprintf("Failed to decode image: %v", err))
		return report
	}

	brightness, contrast := lumaStats(gray)
	report.Brightness = brightness
	report.Contrast = contrast

	valid := true
	if brightness < g.thresholds.MinBrightness || brightness > g.thresholds.MaxBrightness {
		valid = false
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"Brightness %.2f outside range %.2f-%.2f",
			brightness, g.thresholds.MinBrightness, g.thresholds.MaxBrightness))
	}
	if contrast < g.thresholds.MinContrast {
		valid = false
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"Contrast %.1f below minimum %.1f", contrast, g.thresholds.MinContrast))
	}

	if desc != nil {
		width := len(gray)
		height := 0
		if width > 0 {
			height = len(gray[0])
		}

		faceWidth := int(desc.BoundingBox.Width * float64(width))
		faceHeight := int(desc.BoundingBox.Height * float64(height))
		report.FaceWidth = faceWidth
		report.FaceHeight = faceHeight
		if faceWidth < g.thresholds.MinFaceSize || faceHeight < g.thresholds.MinFaceSize {
			valid = false
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"Face size %dx%d below minimum %dx%d",
				faceWidth, faceHeight, g.thresholds.MinFaceSize, g.thresholds.MinFaceSize))
		}

		maxAngle := math.Max(math.Abs(desc.Pose.Yaw),
			math.Max(math.Abs(desc.Pose.Pitch), math.Abs(desc.Pose.Roll)))
		report.HeadPoseDeg = maxAngle
		if maxAngle > g.thresholds.MaxHeadPose {
			valid = false
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"Head pose angle %.1f° exceeds maximum %.1f°", maxAngle, g.thresholds.MaxHeadPose))
		}
	}
	report.Valid = valid

	report.TextureScore = textureScore(gray)
	report.DepthScore = depthScore(imageData)
	report.QualityScore = g.compositeQualityScore(brightness, contrast, gray)
	report.FaceQualityScore = faceQualityScore(desc)

	report.LivenessScore = round3(report.TextureScore*weightTexture +
		report.DepthScore*weightDepth +
		report.QualityScore*weightQuality +
		report.FaceQualityScore*weightFaceQuality)
	report.Live = report.LivenessScore > g.thresholds.LivenessPass
	if !report.Live {
		report.Reasons = append(report.Reasons, fmt.Sprintf(
			"Liveness score %.3f below threshold %.2f", report.LivenessScore, g.thresholds.LivenessPass))
	}

	return report
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
