package camera

// render draws the background gradient, sensor noise, and the object
// population into a freshly allocated RGB24 buffer
func (c *Camera) render() []byte {
	w, h := c.cfg.Width, c.cfg.Height
	data := make([]byte, w*h*3)

	// Vertical gradient, a dim room getting slightly brighter toward the floor
	for y := 0; y < h; y++ {
		gray := byte(40 + (30*y)/h)
		row := data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			row[x*3+0] = gray
			row[x*3+1] = gray + 5
			row[x*3+2] = gray + 10
		}
	}

	// Per-pixel sensor noise in [-10, 10]
	for i := range data {
		data[i] = clampByte(int(data[i]) + c.rng.Intn(21) - 10)
	}

	for _, obj := range c.objects {
		c.drawObject(data, obj)
	}

	return data
}

// drawObject fills the object's box with a vertical brightness ramp and
// frames it with a 2px white border, clipped to the frame
func (c *Camera) drawObject(data []byte, obj *object) {
	w, h := c.cfg.Width, c.cfg.Height
	x1, y1 := int(obj.x), int(obj.y)
	x2, y2 := x1+obj.w, y1+obj.h

	for y := max(y1, 0); y < min(y2, h); y++ {
		blend := 0.7 + 0.3*float64(y-y1)/float64(obj.h)
		for x := max(x1, 0); x < min(x2, w); x++ {
			i := (y*w + x) * 3
			data[i+0] = clampByte(int(float64(obj.color[0]) * blend))
			data[i+1] = clampByte(int(float64(obj.color[1]) * blend))
			data[i+2] = clampByte(int(float64(obj.color[2]) * blend))
		}
	}

	fillWhite(data, w, h, x1, y1, obj.w, 2)
	fillWhite(data, w, h, x1, y2-2, obj.w, 2)
	fillWhite(data, w, h, x1, y1, 2, obj.h)
	fillWhite(data, w, h, x2-2, y1, 2, obj.h)
}

// fillWhite paints a white rectangle clipped to the frame
func fillWhite(data []byte, frameW, frameH, x, y, w, h int) {
	for yy := max(y, 0); yy < min(y+h, frameH); yy++ {
		for xx := max(x, 0); xx < min(x+w, frameW); xx++ {
			i := (yy*frameW + xx) * 3
			data[i+0] = 255
			data[i+1] = 255
			data[i+2] = 255
		}
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
