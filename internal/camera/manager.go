package camera

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
)

// Manager owns the driver and serializes access per device.
type Manager struct {
	driver Driver
	logger *slog.Logger

	mu      sync.Mutex
	devices map[int]*sync.Mutex
	current int
	opened  bool
}

// NewManager wraps driver. A nil driver is treated as NoDevices.
func NewManager(driver Driver, logger *slog.Logger) *Manager {
	if driver == nil {
		driver = NoDevices{}
	}
	return &Manager{
		driver:  driver,
		logger:  logging.OrDiscard(logger),
		devices: make(map[int]*sync.Mutex),
	}
}

// List enumerates devices. Enumeration failures yield an empty list.
func (m *Manager) List() []Device {
	devices, err := m.driver.Enumerate()
	if err != nil {
		m.logger.Warn("camera enumeration failed", "err", err)
		return []Device{}
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices
}

// Capture takes one frame from the device at index. Captures on the same
// device never overlap.
func (m *Manager) Capture(index int) (Frame, error) {
	if index < 0 {
		return Frame{}, &NotFoundError{Index: index}
	}
	lock := m.deviceLock(index)
	lock.Lock()
	defer lock.Unlock()

	frame, err := m.driver.Capture(index)
	if err != nil {
		return Frame{}, fmt.Errorf("capture camera %d: %w", index, err)
	}
	m.mu.Lock()
	m.current, m.opened = index, true
	m.mu.Unlock()
	m.logger.Debug("captured frame", "camera", index, "width", frame.Width, "height", frame.Height, "bytes", len(frame.Data))
	return frame, nil
}

// Current returns the index of the most recently used device.
func (m *Manager) Current() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.opened
}

func (m *Manager) deviceLock(index int) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.devices[index]
	if !ok {
		lock = &sync.Mutex{}
		m.devices[index] = lock
	}
	return lock
}
