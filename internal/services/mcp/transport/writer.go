package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrEmbeddedNewline rejects outbound payloads that would split into two lines.
var ErrEmbeddedNewline = errors.New("message contains a newline")

// Writer emits one message per line. It is safe for concurrent use; each
// message is written and flushed atomically.
type Writer struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteMessage writes msg followed by a newline and flushes.
func (w *Writer) WriteMessage(msg []byte) error {
	if bytes.IndexByte(msg, '\n') >= 0 {
		return ErrEmbeddedNewline
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush message: %w", err)
	}
	return nil
}
