package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxMessageBytes caps a single inbound line when no limit is configured.
const DefaultMaxMessageBytes = 16 << 20

// ErrFraming marks an unrecoverable framing failure on the inbound stream.
var ErrFraming = errors.New("transport framing failure")

// Reader yields complete inbound lines.
type Reader struct {
	br       *bufio.Reader
	maxBytes int
}

// NewReader wraps r. A non-positive maxBytes selects DefaultMaxMessageBytes.
func NewReader(r io.Reader, maxBytes int) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMessageBytes
	}
	return &Reader{br: bufio.NewReader(r), maxBytes: maxBytes}
}

// ReadMessage blocks until one full non-blank line is available and returns it
// without its line terminator. It returns io.EOF when the stream closes on a
// line boundary.
func (r *Reader) ReadMessage() ([]byte, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !utf8.Valid(line) {
			return nil, fmt.Errorf("%w: message is not valid utf-8", ErrFraming)
		}
		return line, nil
	}
}

func (r *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		// The terminator does not count against the limit.
		if len(buf)+len(bytes.TrimSuffix(chunk, []byte{'\n'})) > r.maxBytes {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", ErrFraming, r.maxBytes)
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return buf[:len(buf)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(bytes.TrimSpace(buf)) == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: truncated message at end of stream", ErrFraming)
		default:
			return nil, fmt.Errorf("%w: read message: %w", ErrFraming, err)
		}
	}
}
