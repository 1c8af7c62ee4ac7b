package types

import "time"

// Frame represents a single synthetic video frame
type Frame struct {
	// ID is the monotonic frame identifier, starting at 1
	ID uint64
	// Timestamp is when the frame was generated
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains the raw pixel data (RGB24 format, Width*Height*3 bytes)
	Data []byte
	// TraceID is a unique identifier for correlating a frame across log lines
	TraceID string
}

// PixelRect represents a rectangle in pixel coordinates
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel area of the rectangle
func (r *PixelRect) Area() int {
	return r.Width * r.Height
}

// Clamp ensures the rectangle is within the given frame dimensions
func (r *PixelRect) Clamp(frameWidth, frameHeight int) {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > frameWidth {
		r.Width = frameWidth - r.X
	}
	if r.Y+r.Height > frameHeight {
		r.Height = frameHeight - r.Y
	}
}

// Within reports whether the rectangle lies fully inside a frame of the
// given dimensions
func (r *PixelRect) Within(frameWidth, frameHeight int) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Width >= 0 && r.Height >= 0 &&
		r.X+r.Width <= frameWidth &&
		r.Y+r.Height <= frameHeight
}

// Detection represents a single object detection within a frame
type Detection struct {
	// Label is the detected object class (e.g., "person")
	Label string `json:"label"`
	// Confidence is the detection confidence score [0.0, 1.0]
	Confidence float64 `json:"confidence"`
	// BBox is the bounding box in pixel coordinates
	BBox PixelRect `json:"bbox"`
}
