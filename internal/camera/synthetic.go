package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

const (
	syntheticWidth  = 320
	syntheticHeight = 240
)

// Synthetic serves generated test-pattern frames from a fixed number of
// virtual devices. It stands in for hardware in demos and tests.
type Synthetic struct {
	Count int
	Now   func() time.Time
}

// NewSynthetic returns a driver with count virtual cameras.
func NewSynthetic(count int) *Synthetic {
	return &Synthetic{Count: count, Now: time.Now}
}

// Enumerate lists the virtual devices.
func (s *Synthetic) Enumerate() ([]Device, error) {
	devices := make([]Device, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		devices = append(devices, Device{
			Index:       i,
			Name:        fmt.Sprintf("Synthetic Camera %d", i),
			Description: "generated test pattern",
			Available:   true,
		})
	}
	return devices, nil
}

// Capture renders a color-bar frame tinted by index and encodes it as JPEG.
func (s *Synthetic) Capture(index int) (Frame, error) {
	if index < 0 || index >= s.Count {
		return Frame{}, &NotFoundError{Index: index}
	}
	img := image.NewRGBA(image.Rect(0, 0, syntheticWidth, syntheticHeight))
	bars := []color.RGBA{
		{255, 255, 255, 255}, {255, 255, 0, 255}, {0, 255, 255, 255}, {0, 255, 0, 255},
		{255, 0, 255, 255}, {255, 0, 0, 255}, {0, 0, 255, 255}, {0, 0, 0, 255},
	}
	barWidth := syntheticWidth / len(bars)
	shift := uint8(index * 40)
	for y := 0; y < syntheticHeight; y++ {
		for x := 0; x < syntheticWidth; x++ {
			c := bars[min(x/barWidth, len(bars)-1)]
			c.B += shift
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Frame{
		Data:       buf.Bytes(),
		MIMEType:   "image/jpeg",
		Width:      syntheticWidth,
		Height:     syntheticHeight,
		Index:      index,
		CapturedAt: now().UTC(),
	}, nil
}
