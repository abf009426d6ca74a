package camera

import (
	"bytes"
	"errors"
	"image/jpeg"
	"sync"
	"testing"
	"time"
)

func TestNoDevices(t *testing.T) {
	m := NewManager(nil, nil)
	if got := m.List(); len(got) != 0 || got == nil {
		t.Fatalf("List() = %#v, want empty non-nil slice", got)
	}
	_, err := m.Capture(0)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if notFound.Index != 0 || notFound.Reason() != "camera_not_found" {
		t.Fatalf("not found = %+v", notFound)
	}
	if _, ok := m.Current(); ok {
		t.Fatal("no device should be current after failed capture")
	}
}

func TestSyntheticCapture(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	driver := &Synthetic{Count: 2, Now: func() time.Time { return fixed }}
	m := NewManager(driver, nil)

	devices := m.List()
	if len(devices) != 2 || devices[1].Index != 1 || !devices[1].Available {
		t.Fatalf("devices = %+v", devices)
	}

	frame, err := m.Capture(1)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if frame.MIMEType != "image/jpeg" || frame.Index != 1 || !frame.CapturedAt.Equal(fixed) {
		t.Fatalf("frame = %+v", frame)
	}
	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != frame.Width || b.Dy() != frame.Height {
		t.Fatalf("bounds = %v, want %dx%d", b, frame.Width, frame.Height)
	}
	if current, ok := m.Current(); !ok || current != 1 {
		t.Fatalf("Current() = %d, %v, want 1, true", current, ok)
	}

	if _, err := m.Capture(2); err == nil {
		t.Fatal("expected out-of-range capture to fail")
	}
	if _, err := m.Capture(-1); err == nil {
		t.Fatal("expected negative index to fail")
	}
}

type enumerateErrDriver struct{ NoDevices }

func (enumerateErrDriver) Enumerate() ([]Device, error) { return nil, errors.New("backend down") }

func TestListSwallowsEnumerationError(t *testing.T) {
	if got := NewManager(enumerateErrDriver{}, nil).List(); len(got) != 0 {
		t.Fatalf("List() = %v, want empty", got)
	}
}

// overlapDriver records the peak number of concurrent captures per device.
type overlapDriver struct {
	mu     sync.Mutex
	active map[int]int
	peak   map[int]int
}

func (d *overlapDriver) Enumerate() ([]Device, error) { return nil, nil }

func (d *overlapDriver) Capture(index int) (Frame, error) {
	d.mu.Lock()
	d.active[index]++
	if d.active[index] > d.peak[index] {
		d.peak[index] = d.active[index]
	}
	d.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	d.mu.Lock()
	d.active[index]--
	d.mu.Unlock()
	if index == 3 {
		return Frame{}, errors.New("sensor glitch")
	}
	return Frame{Index: index}, nil
}

func TestCaptureIsExclusivePerDevice(t *testing.T) {
	driver := &overlapDriver{active: map[int]int{}, peak: map[int]int{}}
	m := NewManager(driver, nil)

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Capture(i % 4)
		}(i)
	}
	wg.Wait()

	driver.mu.Lock()
	defer driver.mu.Unlock()
	for index, peak := range driver.peak {
		if peak != 1 {
			t.Fatalf("device %d peak concurrency = %d, want 1", index, peak)
		}
	}
	// Failing captures on device 3 must still release its lock.
	if _, err := m.Capture(3); err == nil {
		t.Fatal("expected device 3 to fail")
	}
}
