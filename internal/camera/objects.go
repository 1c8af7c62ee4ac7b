package camera

import "github.com/visiona/argus/internal/types"

// objectClass defines one entry in the camera's label vocabulary
type objectClass struct {
	label   string
	color   [3]uint8
	minSize int
	maxSize int
}

// vocabulary is the fixed set of labels the camera can stage, with their
// rendering colors and pixel size ranges
var vocabulary = []objectClass{
	{"person", [3]uint8{255, 100, 100}, 80, 150},
	{"car", [3]uint8{100, 100, 255}, 100, 180},
	{"dog", [3]uint8{100, 255, 100}, 40, 80},
	{"cat", [3]uint8{255, 255, 100}, 30, 60},
	{"chair", [3]uint8{255, 100, 255}, 50, 90},
	{"bottle", [3]uint8{100, 255, 255}, 20, 50},
}

// velocityJitterChance is the per-tick probability that an object abandons
// its course and picks a new random velocity
const velocityJitterChance = 0.02

// maxSpeed bounds each velocity component, in pixels per tick
const maxSpeed = 3.0

// object is a single member of the simulated population. Positions are kept
// as floats so slow objects still drift; detections truncate to pixels.
type object struct {
	label      string
	color      [3]uint8
	confidence float64
	w, h       int
	x, y       float64
	vx, vy     float64
}

func (c *Camera) newPopulation(count int) []*object {
	objects := make([]*object, 0, count)
	for i := 0; i < count; i++ {
		objects = append(objects, c.newObject())
	}
	return objects
}

func (c *Camera) newObject() *object {
	class := vocabulary[c.rng.Intn(len(vocabulary))]

	w := c.randInt(class.minSize, class.maxSize)
	h := int(float64(w) * c.uniform(0.8, 1.5))

	// Frames smaller than the vocabulary sizes still get valid boxes
	if w > c.cfg.Width {
		w = c.cfg.Width
	}
	if h > c.cfg.Height {
		h = c.cfg.Height
	}

	return &object{
		label:      class.label,
		color:      class.color,
		confidence: c.uniform(0.6, 0.99),
		w:          w,
		h:          h,
		x:          float64(c.rng.Intn(c.cfg.Width - w + 1)),
		y:          float64(c.rng.Intn(c.cfg.Height - h + 1)),
		vx:         c.uniform(-maxSpeed, maxSpeed),
		vy:         c.uniform(-maxSpeed, maxSpeed),
	}
}

// updatePositions advances every object by its velocity, bouncing off the
// frame edges so boxes never leave the frame
func (c *Camera) updatePositions() {
	w := float64(c.cfg.Width)
	h := float64(c.cfg.Height)

	for _, obj := range c.objects {
		obj.x += obj.vx
		obj.y += obj.vy

		if obj.x <= 0 || obj.x+float64(obj.w) >= w {
			obj.vx = -obj.vx
			obj.x = max(0, min(obj.x, w-float64(obj.w)))
		}
		if obj.y <= 0 || obj.y+float64(obj.h) >= h {
			obj.vy = -obj.vy
			obj.y = max(0, min(obj.y, h-float64(obj.h)))
		}

		if c.rng.Float64() < velocityJitterChance {
			obj.vx = c.uniform(-maxSpeed, maxSpeed)
			obj.vy = c.uniform(-maxSpeed, maxSpeed)
		}
	}
}

func (o *object) detection() types.Detection {
	return types.Detection{
		Label:      o.label,
		Confidence: o.confidence,
		BBox: types.PixelRect{
			X:      int(o.x),
			Y:      int(o.y),
			Width:  o.w,
			Height: o.h,
		},
	}
}
