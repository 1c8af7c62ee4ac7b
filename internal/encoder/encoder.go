// Package encoder turns raw RGB frames into transport-ready payloads.
package encoder

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/visiona/argus/internal/types"
)

// Encoder compresses frames to JPEG for the video stream. Each call
// allocates a fresh payload so buffers can be handed to the publisher and
// the preview mirror without copying.
type Encoder struct {
	quality int
}

// New returns an encoder with the given JPEG quality. Out-of-range values
// fall back to the image/jpeg default.
func New(quality int) *Encoder {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Encoder{quality: quality}
}

// Quality returns the configured JPEG quality
func (e *Encoder) Quality() int {
	return e.quality
}

// EncodeJPEG compresses img and returns the JPEG bytes
func (e *Encoder) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// ToRGBA expands a frame's RGB24 data into an image.RGBA with an opaque
// alpha channel, the form image/jpeg and the overlay renderer work with
func ToRGBA(frame *types.Frame) (*image.RGBA, error) {
	expected := frame.Width * frame.Height * 3
	if len(frame.Data) != expected {
		return nil, fmt.Errorf("invalid RGB data size: got %d bytes, expected %d (%dx%d)",
			len(frame.Data), expected, frame.Width, frame.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := 0; i < frame.Width*frame.Height; i++ {
		img.Pix[i*4+0] = frame.Data[i*3+0]
		img.Pix[i*4+1] = frame.Data[i*3+1]
		img.Pix[i*4+2] = frame.Data[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img, nil
}

// Base64 wraps a JPEG payload in standard base64, the wire format of the
// video topic
func Base64(jpegData []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(jpegData)))
	base64.StdEncoding.Encode(out, jpegData)
	return out
}
