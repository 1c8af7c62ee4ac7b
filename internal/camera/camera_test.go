package camera

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// TestFrameIDStartsAtOneAndIncrements verifies the monotonic frame identity
// contract across consecutive calls
func TestFrameIDStartsAtOneAndIncrements(t *testing.T) {
	cam, err := New(Config{Width: 64, Height: 48, Objects: 2, Seed: 42})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for want := uint64(1); want <= 50; want++ {
		frame, _, err := cam.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame %d failed: %v", want, err)
		}
		if frame.ID != want {
			t.Fatalf("frame ID = %d, want %d", frame.ID, want)
		}
	}

	if cam.FrameID() != 50 {
		t.Errorf("FrameID() = %d, want 50", cam.FrameID())
	}
}

// TestDetectionsStayInBounds runs the simulation long enough for every
// object to hit the frame edges and verifies no box ever escapes
func TestDetectionsStayInBounds(t *testing.T) {
	configs := []Config{
		{Width: 640, Height: 480, Objects: 5, Seed: 1},
		{Width: 320, Height: 240, Objects: 8, Seed: 2},
		{Width: 100, Height: 100, Objects: 3, Seed: 3},
		{Width: 640, Height: 480, Objects: 5, Seed: 4, Reshuffle: true},
	}

	for _, cfg := range configs {
		cam, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%dx%d) failed: %v", cfg.Width, cfg.Height, err)
		}

		for tick := 0; tick < 200; tick++ {
			_, dets, err := cam.NextFrame()
			if err != nil {
				t.Fatalf("NextFrame failed on tick %d: %v", tick, err)
			}
			for i, det := range dets {
				if !det.BBox.Within(cfg.Width, cfg.Height) {
					t.Fatalf("tick %d det %d: bbox %+v outside %dx%d",
						tick, i, det.BBox, cfg.Width, cfg.Height)
				}
				if det.Confidence < 0 || det.Confidence > 1 {
					t.Fatalf("tick %d det %d: confidence %f outside [0,1]",
						tick, i, det.Confidence)
				}
				if det.Label == "" {
					t.Fatalf("tick %d det %d: empty label", tick, i)
				}
			}
		}
	}
}

// TestPopulationStaysStable verifies that without reshuffle the same objects
// with the same labels and confidences appear in every frame, in the same
// order
func TestPopulationStaysStable(t *testing.T) {
	cam, err := New(Config{Width: 640, Height: 480, Objects: 5, Seed: 99})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, first, err := cam.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d detections, want 5", len(first))
	}

	for tick := 0; tick < 50; tick++ {
		_, dets, err := cam.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame failed: %v", err)
		}
		for i := range dets {
			if dets[i].Label != first[i].Label {
				t.Fatalf("tick %d: label[%d] changed from %q to %q",
					tick, i, first[i].Label, dets[i].Label)
			}
			if dets[i].Confidence != first[i].Confidence {
				t.Fatalf("tick %d: confidence[%d] changed from %f to %f",
					tick, i, first[i].Confidence, dets[i].Confidence)
			}
		}
	}

	labels := cam.Population()
	if len(labels) != 5 {
		t.Fatalf("Population returned %d labels, want 5", len(labels))
	}
	for i, l := range labels {
		if l != first[i].Label {
			t.Errorf("Population[%d] = %q, want %q", i, l, first[i].Label)
		}
	}
}

// TestObjectsMove verifies positions advance by the object velocity on each
// frame. Velocities are forced so the outcome does not depend on the seed.
func TestObjectsMove(t *testing.T) {
	cam, err := New(Config{Width: 640, Height: 480, Objects: 1, Seed: 7})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	obj := cam.objects[0]
	obj.x, obj.y = 100, 100
	obj.w, obj.h = 50, 50
	obj.vx, obj.vy = 2.5, -1.25

	_, dets, err := cam.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}

	if obj.x != 102.5 || obj.y != 98.75 {
		t.Errorf("position = (%f, %f), want (102.5, 98.75)", obj.x, obj.y)
	}
	if dets[0].BBox.X != 102 || dets[0].BBox.Y != 98 {
		t.Errorf("bbox origin = (%d, %d), want (102, 98)",
			dets[0].BBox.X, dets[0].BBox.Y)
	}
}

// TestEdgeBounce verifies an object crossing the right edge is clamped back
// inside and, barring the rare velocity rejitter, reverses course
func TestEdgeBounce(t *testing.T) {
	flips := 0
	trials := 40

	for seed := int64(1); seed <= int64(trials); seed++ {
		cam, err := New(Config{Width: 640, Height: 480, Objects: 1, Seed: seed})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		obj := cam.objects[0]
		obj.x, obj.y = 588, 200
		obj.w, obj.h = 50, 50
		obj.vx, obj.vy = 3, 0

		_, dets, err := cam.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame failed: %v", err)
		}

		if obj.x != 590 {
			t.Fatalf("seed %d: x = %f after bounce, want 590", seed, obj.x)
		}
		if !dets[0].BBox.Within(640, 480) {
			t.Fatalf("seed %d: bbox %+v escaped after bounce", seed, dets[0].BBox)
		}
		if obj.vx < 0 {
			flips++
		}
	}

	// The 2% rejitter can mask individual flips but not most of them
	if flips < trials-5 {
		t.Errorf("velocity reversed in only %d/%d bounces", flips, trials)
	}
}

// TestSeededSequencesMatch verifies two cameras with the same seed emit
// identical frames and detections, in both motion and reshuffle modes
func TestSeededSequencesMatch(t *testing.T) {
	for _, reshuffle := range []bool{false, true} {
		cfg := Config{Width: 320, Height: 240, Objects: 4, Seed: 1234, Reshuffle: reshuffle}

		a, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		b, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		for tick := 0; tick < 30; tick++ {
			frameA, detsA, errA := a.NextFrame()
			frameB, detsB, errB := b.NextFrame()
			if errA != nil || errB != nil {
				t.Fatalf("NextFrame failed: %v / %v", errA, errB)
			}
			if frameA.ID != frameB.ID {
				t.Fatalf("reshuffle=%v tick %d: IDs diverged: %d vs %d",
					reshuffle, tick, frameA.ID, frameB.ID)
			}
			if !reflect.DeepEqual(detsA, detsB) {
				t.Fatalf("reshuffle=%v tick %d: detections diverged:\n%+v\n%+v",
					reshuffle, tick, detsA, detsB)
			}
			if !bytes.Equal(frameA.Data, frameB.Data) {
				t.Fatalf("reshuffle=%v tick %d: pixel data diverged", reshuffle, tick)
			}
		}
	}
}

// TestZeroObjects verifies an empty scene still renders full frames and
// returns an empty, non-nil detection list
func TestZeroObjects(t *testing.T) {
	cam, err := New(Config{Width: 160, Height: 120, Objects: 0, Seed: 5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	frame, dets, err := cam.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	if dets == nil {
		t.Fatal("detections is nil, want empty slice")
	}
	if len(dets) != 0 {
		t.Fatalf("got %d detections, want 0", len(dets))
	}
	if len(frame.Data) != 160*120*3 {
		t.Fatalf("frame data = %d bytes, want %d", len(frame.Data), 160*120*3)
	}
}

// TestRenderBackground verifies the empty scene stays within the gradient
// plus noise envelope and is brighter at the bottom than at the top
func TestRenderBackground(t *testing.T) {
	cam, err := New(Config{Width: 640, Height: 480, Objects: 0, Seed: 11})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	frame, _, err := cam.NextFrame()
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}

	for i, v := range frame.Data {
		if v < 30 || v > 90 {
			t.Fatalf("pixel byte %d = %d, outside gradient+noise envelope", i, v)
		}
	}

	rowMean := func(y int) float64 {
		sum := 0
		for x := 0; x < frame.Width; x++ {
			sum += int(frame.Data[(y*frame.Width+x)*3])
		}
		return float64(sum) / float64(frame.Width)
	}

	top := rowMean(0)
	bottom := rowMean(frame.Height - 1)
	if bottom < top+20 {
		t.Errorf("gradient missing: top row mean %.1f, bottom row mean %.1f", top, bottom)
	}
}

// TestInvalidConfigRejected verifies unusable settings fail fast with
// ErrInvalidConfig
func TestInvalidConfigRejected(t *testing.T) {
	bad := []Config{
		{Width: 0, Height: 480, Objects: 5},
		{Width: 640, Height: 0, Objects: 5},
		{Width: -640, Height: 480, Objects: 5},
		{Width: 640, Height: 480, Objects: -1},
	}

	for _, cfg := range bad {
		_, err := New(cfg)
		if err == nil {
			t.Fatalf("New(%+v) succeeded, want error", cfg)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

// TestSmallFrameClampsObjects verifies frames smaller than the vocabulary
// size ranges still produce in-bounds boxes
func TestSmallFrameClampsObjects(t *testing.T) {
	cam, err := New(Config{Width: 24, Height: 24, Objects: 6, Seed: 8})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for tick := 0; tick < 100; tick++ {
		_, dets, err := cam.NextFrame()
		if err != nil {
			t.Fatalf("NextFrame failed on tick %d: %v", tick, err)
		}
		for i, det := range dets {
			if !det.BBox.Within(24, 24) {
				t.Fatalf("tick %d det %d: bbox %+v outside 24x24", tick, i, det.BBox)
			}
		}
	}
}

func BenchmarkNextFrame(b *testing.B) {
	cam, err := New(Config{Width: 640, Height: 480, Objects: 5, Seed: 1})
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := cam.NextFrame(); err != nil {
			b.Fatalf("NextFrame failed: %v", err)
		}
	}
}
