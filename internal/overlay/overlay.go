// Package overlay draws detection boxes, labels, and a status HUD onto
// frames before they are encoded for the video stream.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/visiona/argus/internal/types"
)

const (
	hudHeight       = 40
	borderThickness = 3
	cornerThickness = 4
	fillAlpha       = 0.15
)

// labelColors maps vocabulary labels to box colors. Unlisted labels fall
// back to white.
var labelColors = map[string]color.RGBA{
	"person": {100, 200, 255, 255},
	"car":    {0, 255, 100, 255},
	"truck":  {255, 150, 0, 255},
	"bus":    {255, 100, 255, 255},
	"dog":    {255, 255, 0, 255},
	"cat":    {0, 220, 220, 255},
}

var (
	hudBarColor  = color.RGBA{20, 20, 20, 255}
	liveColor    = color.RGBA{0, 255, 100, 255}
	counterColor = color.RGBA{0, 200, 255, 255}
	dotColor     = color.RGBA{255, 60, 60, 255}
	white        = color.RGBA{255, 255, 255, 255}
)

// Draw renders all detections and the HUD bar onto img in place
func Draw(img *image.RGBA, dets []types.Detection, frameID uint64, ts time.Time) {
	for _, det := range dets {
		drawDetection(img, det)
	}
	drawHUD(img, len(dets), frameID, ts)
}

// drawDetection renders one box: translucent fill, solid border, corner
// accents, and a label tag above the top edge
func drawDetection(img *image.RGBA, det types.Detection) {
	c := colorFor(det.Label)
	b := det.BBox

	tintRect(img, b.X, b.Y, b.Width, b.Height, c, fillAlpha)
	strokeRect(img, b.X, b.Y, b.Width, b.Height, c, borderThickness)
	drawCorners(img, b, c)

	tag := fmt.Sprintf("%s %d%%", strings.ToUpper(det.Label), pct(det.Confidence))
	tagW := textWidth(tag) + 10
	fillRect(img, b.X, b.Y-23, tagW, 23, c)
	drawText(img, b.X+5, b.Y-8, tag, hudBarColor)
}

// drawHUD renders the top status bar: a LIVE clock on the left, the object
// counter on the right, and a dot blinking every other frame
func drawHUD(img *image.RGBA, objects int, frameID uint64, ts time.Time) {
	w := img.Bounds().Dx()

	fillRect(img, 0, 0, w, hudHeight, hudBarColor)
	drawText(img, 10, 25, "LIVE | "+ts.Format("15:04:05"), liveColor)

	counter := fmt.Sprintf("Objects: %d", objects)
	drawText(img, w-textWidth(counter)-12, 25, counter, counterColor)

	if frameID%2 == 0 {
		fillDisc(img, w-textWidth(counter)-30, 20, 5, dotColor)
	}
}

func colorFor(label string) color.RGBA {
	if c, ok := labelColors[strings.ToLower(label)]; ok {
		return c
	}
	return white
}

// pct rounds a confidence to a whole percentage
func pct(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// drawCorners accents the four corners with short L-shaped marks
func drawCorners(img *image.RGBA, b types.PixelRect, c color.RGBA) {
	l := min(20, b.Width/4, b.Height/4)
	if l < cornerThickness {
		return
	}
	x2 := b.X + b.Width
	y2 := b.Y + b.Height

	fillRect(img, b.X, b.Y, l, cornerThickness, c)
	fillRect(img, b.X, b.Y, cornerThickness, l, c)
	fillRect(img, x2-l, b.Y, l, cornerThickness, c)
	fillRect(img, x2-cornerThickness, b.Y, cornerThickness, l, c)
	fillRect(img, b.X, y2-cornerThickness, l, cornerThickness, c)
	fillRect(img, b.X, y2-l, cornerThickness, l, c)
	fillRect(img, x2-l, y2-cornerThickness, l, cornerThickness, c)
	fillRect(img, x2-cornerThickness, y2-l, cornerThickness, l, c)
}

// fillRect paints a solid rectangle clipped to the image bounds
func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	bounds := img.Bounds()
	for yy := max(y, bounds.Min.Y); yy < min(y+h, bounds.Max.Y); yy++ {
		for xx := max(x, bounds.Min.X); xx < min(x+w, bounds.Max.X); xx++ {
			img.SetRGBA(xx, yy, c)
		}
	}
}

// tintRect alpha-blends a color over a rectangle, clipped to the image
func tintRect(img *image.RGBA, x, y, w, h int, c color.RGBA, alpha float64) {
	bounds := img.Bounds()
	for yy := max(y, bounds.Min.Y); yy < min(y+h, bounds.Max.Y); yy++ {
		for xx := max(x, bounds.Min.X); xx < min(x+w, bounds.Max.X); xx++ {
			p := img.RGBAAt(xx, yy)
			img.SetRGBA(xx, yy, color.RGBA{
				R: blend(p.R, c.R, alpha),
				G: blend(p.G, c.G, alpha),
				B: blend(p.B, c.B, alpha),
				A: 255,
			})
		}
	}
}

func blend(base, over uint8, alpha float64) uint8 {
	return uint8(float64(base)*(1-alpha) + float64(over)*alpha)
}

// strokeRect draws a hollow rectangle with edges of thickness t
func strokeRect(img *image.RGBA, x, y, w, h int, c color.RGBA, t int) {
	fillRect(img, x, y, w, t, c)
	fillRect(img, x, y+h-t, w, t, c)
	fillRect(img, x, y, t, h, c)
	fillRect(img, x+w-t, y, t, h, c)
}

// fillDisc paints a filled circle of radius r centered at (cx, cy)
func fillDisc(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(img.Bounds()) {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}
}

// drawText renders s with the baseline at (x, y) using the built-in 7x13
// bitmap face. Glyphs falling outside the image are clipped by the drawer.
func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// textWidth returns the advance of s in pixels for the 7x13 face
func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}
