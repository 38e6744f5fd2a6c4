package quality

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/kozaktomas/face-registry/internal/engine"
)

// gradientImage renders a synthetic frame with mid-range brightness
// and enough contrast to clear the default gate.
func gradientImage(t *testing.T) []byte {
	t.Helper()

	const size = 200
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8((x + y) * 255 / (2 * size))
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// darkImage is nearly black with almost no variation.
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

func goodDescriptor() *engine.FaceDescriptor {
	return &engine.FaceDescriptor{
		BoundingBox: engine.BoundingBox{Left: 0, Top: 0, Width: 1, Height: 1},
		Confidence:  99.0,
		Quality:     engine.FaceQuality{Brightness: 50, Sharpness: 60},
	}
}

func hasReason(report Report, fragment string) bool {
	for _, reason := range report.Reasons {
		if strings.Contains(reason, fragment) {
			return true
		}
	}
	return false
}

func TestEvaluateGradientPasses(t *testing.T) {
	gate := NewGate(DefaultThresholds())
	report := gate.Evaluate(gradientImage(t), goodDescriptor())

	if !report.Valid {
		t.Fatalf("expected gradient image to pass, reasons: %v", report.Reasons)
	}
	if report.Brightness < 0.2 || report.Brightness > 0.8 {
		t.Errorf("expected mid-range brightness, got %.2f", report.Brightness)
	}
	if report.Contrast < 20 {
		t.Errorf("expected contrast above 20, got %.1f", report.Contrast)
	}
}

func TestEvaluateDarkImageFails(t *testing.T) {
	gate := NewGate(DefaultThresholds())
	report := gate.Evaluate(darkImage(t), nil)

	if report.Valid {
		t.Fatal("expected dark image to fail the gate")
	}
	if !hasReason(report, "Brightness") {
		t.Errorf("expected a brightness reason, got %v", report.Reasons)
	}
	if !hasReason(report, "Contrast") {
		t.Errorf("expected a contrast reason, got %v", report.Reasons)
	}
}

func TestEvaluateFaceSize(t *testing.T) {
	gate := NewGate(DefaultThresholds())

	desc := goodDescriptor()
	desc.BoundingBox.Width = 0.1
	desc.BoundingBox.Height = 0.1
	report := gate.Evaluate(gradientImage(t), desc)

	if report.Valid {
		t.Fatal("expected a 20px face in a 200px frame to be rejected")
	}
	if !hasReason(report, "Face size") {
		t.Errorf("expected a face size reason, got %v", report.Reasons)
	}
	if report.FaceWidth != 20 || report.FaceHeight != 20 {
		t.Errorf("expected reported face size 20x20, got %dx%d", report.FaceWidth, report.FaceHeight)
	}
}

func TestEvaluateHeadPose(t *testing.T) {
	gate := NewGate(DefaultThresholds())

	desc := goodDescriptor()
	desc.Pose.Yaw = 45
	report := gate.Evaluate(gradientImage(t), desc)

	if report.Valid {
		t.Fatal("expected a 45 degree yaw to be rejected")
	}
	if !hasReason(report, "Head pose") {
		t.Errorf("expected a head pose reason, got %v", report.Reasons)
	}
	if report.HeadPoseDeg != 45 {
		t.Errorf("expected reported pose 45, got %.1f", report.HeadPoseDeg)
	}
}

func TestEvaluateNilDescriptorSkipsFaceChecks(t *testing.T) {
	gate := NewGate(DefaultThresholds())
	report := gate.Evaluate(gradientImage(t), nil)

	if !report.Valid {
		t.Fatalf("expected image checks alone to pass, reasons: %v", report.Reasons)
	}
	if report.FaceWidth != 0 || report.HeadPoseDeg != 0 {
		t.Error("expected face metrics to stay unset without a descriptor")
	}
}

func TestEvaluateUndecodableImage(t *testing.T) {
	gate := NewGate(DefaultThresholds())
	report := gate.Evaluate([]byte("not an image"), nil)

	if report.Valid {
		t.Fatal("expected undecodable data to fail")
	}
	if !hasReason(report, "Failed to decode image") {
		t.Errorf("expected a decode reason, got %v", report.Reasons)
	}
}

func TestLivenessScoreBounds(t *testing.T) {
	gate := NewGate(DefaultThresholds())

	for name, img := range map[string][]byte{
		"gradient": gradientImage(t),
		"dark":     darkImage(t),
	} {
		report := gate.Evaluate(img, goodDescriptor())
		if report.LivenessScore < 0 || report.LivenessScore > 1 {
			t.Errorf("%s: liveness score %.3f out of range", name, report.LivenessScore)
		}
		if report.Live != (report.LivenessScore > gate.thresholds.LivenessPass) {
			t.Errorf("%s: Live flag inconsistent with score %.3f", name, report.LivenessScore)
		}
	}
}

func flatImage(t *testing.T, luma uint8) []byte {
	t.Helper()

	const size = 64
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: luma})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestBoundaryBrightnessPasses(t *testing.T) {
	// Exactly at the boundary is still inside the allowed range.
	gate := NewGate(Thresholds{MinBrightness: 0.2, MaxBrightness: 0.8, MinContrast: 0})

	report := gate.Evaluate(flatImage(t, 51), nil) // 51/255 = 0.2
	if hasReason(report, "Brightness") {
		t.Errorf("expected boundary brightness to pass, got %v", report.Reasons)
	}
}

func TestBelowBoundaryBrightnessFails(t *testing.T) {
	// One luma step under the boundary must be rejected.
	gate := NewGate(Thresholds{MinBrightness: 0.2, MaxBrightness: 0.8, MinContrast: 0})

	report := gate.Evaluate(flatImage(t, 50), nil) // 50/255 < 0.2
	if !hasReason(report, "Brightness") {
		t.Errorf("expected a Brightness rejection, got %v", report.Reasons)
	}
	if report.Valid {
		t.Error("expected the report to be invalid")
	}
}
