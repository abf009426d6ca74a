// Package camera exposes local capture devices to tool handlers.
//
// Devices are process-wide singletons: Manager serializes captures per device
// index so two calls never drive the same hardware at once, while different
// devices capture in parallel.
package camera

import (
	"fmt"
	"time"
)

// Device describes one enumerated capture device.
type Device struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

// Frame is one encoded still image.
type Frame struct {
	Data       []byte
	MIMEType   string
	Width      int
	Height     int
	Index      int
	CapturedAt time.Time
}

// Driver talks to the capture hardware. Implementations may block.
type Driver interface {
	Enumerate() ([]Device, error)
	Capture(index int) (Frame, error)
}

// NotFoundError reports a capture request for a device that does not exist.
type NotFoundError struct {
	Index int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("camera %d not found", e.Index)
}

// Reason is a stable machine-readable failure code.
func (e *NotFoundError) Reason() string { return "camera_not_found" }

// NoDevices is the driver used when no capture backend is available.
type NoDevices struct{}

// Enumerate reports no devices.
func (NoDevices) Enumerate() ([]Device, error) { return nil, nil }

// Capture always fails with *NotFoundError.
func (NoDevices) Capture(index int) (Frame, error) {
	return Frame{}, &NotFoundError{Index: index}
}
