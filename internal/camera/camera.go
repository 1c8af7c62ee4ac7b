// Package camera implements the synthetic frame source: a fixed population
// of simulated objects moving across a rendered background, emitted as raw
// RGB frames together with their ground-truth detections.
package camera

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/argus/internal/types"
)

// ErrInvalidConfig is returned by New when the generator settings are unusable
var ErrInvalidConfig = errors.New("invalid camera config")

// Config holds the generator settings
type Config struct {
	// Width and Height are the frame dimensions in pixels
	Width  int
	Height int
	// Objects is the population size; 0 produces an empty scene
	Objects int
	// Seed fixes the random sequence; 0 seeds from the clock
	Seed int64
	// Reshuffle rebuilds the population every frame instead of moving it
	Reshuffle bool
}

// Camera generates synthetic frames. All methods must be called from a
// single goroutine; the camera keeps no internal locking and does no
// background work.
type Camera struct {
	cfg     Config
	rng     *rand.Rand
	objects []*object
	frameID uint64
}

// New validates cfg and stages the initial object population
func New(cfg Config) (*Camera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: frame dimensions must be positive, got %dx%d",
			ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.Objects < 0 {
		return nil, fmt.Errorf("%w: object count must be >= 0, got %d",
			ErrInvalidConfig, cfg.Objects)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &Camera{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
	c.objects = c.newPopulation(cfg.Objects)
	return c, nil
}

// NextFrame advances the simulation one tick and returns the rendered frame
// together with one detection per object, in stable population order. The
// returned buffer is freshly allocated; the caller owns it.
func (c *Camera) NextFrame() (types.Frame, []types.Detection, error) {
	if c.cfg.Reshuffle {
		c.objects = c.newPopulation(c.cfg.Objects)
	} else {
		c.updatePositions()
	}

	c.frameID++
	frame := types.Frame{
		ID:        c.frameID,
		Timestamp: time.Now(),
		Width:     c.cfg.Width,
		Height:    c.cfg.Height,
		Data:      c.render(),
		TraceID:   uuid.New().String(),
	}

	detections := make([]types.Detection, 0, len(c.objects))
	for _, obj := range c.objects {
		det := obj.detection()
		if !det.BBox.Within(c.cfg.Width, c.cfg.Height) {
			return types.Frame{}, nil, fmt.Errorf(
				"camera: bbox (%d,%d %dx%d) escaped %dx%d frame",
				det.BBox.X, det.BBox.Y, det.BBox.Width, det.BBox.Height,
				c.cfg.Width, c.cfg.Height)
		}
		detections = append(detections, det)
	}

	return frame, detections, nil
}

// FrameID returns the identifier of the most recently generated frame
func (c *Camera) FrameID() uint64 {
	return c.frameID
}

// Population returns the labels of the current object population, in
// emission order
func (c *Camera) Population() []string {
	labels := make([]string, 0, len(c.objects))
	for _, obj := range c.objects {
		labels = append(labels, obj.label)
	}
	return labels
}

// randInt returns a uniform int in [lo, hi]
func (c *Camera) randInt(lo, hi int) int {
	return lo + c.rng.Intn(hi-lo+1)
}

// uniform returns a uniform float64 in [lo, hi)
func (c *Camera) uniform(lo, hi float64) float64 {
	return lo + c.rng.Float64()*(hi-lo)
}
