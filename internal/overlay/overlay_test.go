package overlay

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/visiona/argus/internal/types"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{50, 50, 50, 255})
		}
	}
	return img
}

// TestDrawPaintsHUDBar verifies the status bar covers the top rows and
// leaves the rest of the frame alone when there are no detections
func TestDrawPaintsHUDBar(t *testing.T) {
	img := testImage(640, 480)
	Draw(img, nil, 1, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))

	if got := img.RGBAAt(0, 0); got != hudBarColor {
		t.Errorf("pixel (0,0) = %+v, want HUD bar color %+v", got, hudBarColor)
	}
	if got := img.RGBAAt(320, hudHeight-1); got != hudBarColor {
		t.Errorf("pixel inside bar = %+v, want %+v", got, hudBarColor)
	}
	if got := img.RGBAAt(320, 400); got != (color.RGBA{50, 50, 50, 255}) {
		t.Errorf("pixel below bar = %+v, want untouched background", got)
	}
}

// TestBlinkingDot verifies the recording dot appears on even frames only
func TestBlinkingDot(t *testing.T) {
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	dotX := 640 - textWidth("Objects: 0") - 30

	even := testImage(640, 480)
	Draw(even, nil, 2, ts)
	if got := even.RGBAAt(dotX, 20); got != dotColor {
		t.Errorf("even frame: pixel (%d,20) = %+v, want dot color %+v", dotX, got, dotColor)
	}

	odd := testImage(640, 480)
	Draw(odd, nil, 3, ts)
	if got := odd.RGBAAt(dotX, 20); got != hudBarColor {
		t.Errorf("odd frame: pixel (%d,20) = %+v, want bar color %+v", dotX, got, hudBarColor)
	}
}

// TestDrawDetectionBox verifies the border, fill tint, and corner accents
// land where the bbox says
func TestDrawDetectionBox(t *testing.T) {
	img := testImage(640, 480)
	det := types.Detection{
		Label:      "person",
		Confidence: 0.9,
		BBox:       types.PixelRect{X: 100, Y: 100, Width: 80, Height: 60},
	}
	drawDetection(img, det)

	want := labelColors["person"]
	if got := img.RGBAAt(101, 101); got != want {
		t.Errorf("border pixel = %+v, want %+v", got, want)
	}
	if got := img.RGBAAt(140, 130); got == (color.RGBA{50, 50, 50, 255}) {
		t.Error("box interior was not tinted")
	}
	if got := img.RGBAAt(140, 130); got == want {
		t.Error("box interior is fully opaque, want a translucent tint")
	}
}

// TestDrawClipsAtEdges verifies boxes touching the frame edges and the tag
// of a box at y=0 render without panicking or writing out of bounds
func TestDrawClipsAtEdges(t *testing.T) {
	img := testImage(200, 150)
	dets := []types.Detection{
		{Label: "car", Confidence: 0.8, BBox: types.PixelRect{X: 0, Y: 0, Width: 60, Height: 50}},
		{Label: "dog", Confidence: 0.7, BBox: types.PixelRect{X: 140, Y: 100, Width: 60, Height: 50}},
		{Label: "cat", Confidence: 0.6, BBox: types.PixelRect{X: 0, Y: 0, Width: 200, Height: 150}},
	}

	Draw(img, dets, 4, time.Now())

	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 150 {
		t.Errorf("image bounds changed to %v", img.Bounds())
	}
}

// TestColorFallback verifies unknown labels draw in white
func TestColorFallback(t *testing.T) {
	if got := colorFor("unknown-thing"); got != white {
		t.Errorf("colorFor(unknown) = %+v, want white", got)
	}
	if got := colorFor("PERSON"); got != labelColors["person"] {
		t.Errorf("colorFor is case-sensitive: got %+v", got)
	}
}

// TestPct verifies confidence rounding used in label tags
func TestPct(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0.93, 93},
		{0.925, 93},
		{0.999, 100},
		{0.5, 50},
		{0.0, 0},
	}
	for _, c := range cases {
		if got := pct(c.in); got != c.want {
			t.Errorf("pct(%f) = %d, want %d", c.in, got, c.want)
		}
	}
}
