// Package snapshot downloads a single still image from a remote camera URL.
//
// Plain image endpoints are read whole. MJPEG streams
// (multipart/x-mixed-replace) yield their first frame and the connection is
// dropped.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/timeouts"
)

// DefaultMaxBytes caps one downloaded image.
const DefaultMaxBytes = 10 << 20

// Error is a fetch failure with a stable reason code.
type Error struct {
	reason  string
	message string
}

func (e *Error) Error() string { return e.message }

// Reason is a stable machine-readable failure code.
func (e *Error) Reason() string { return e.reason }

var (
	// ErrUnsupportedURL rejects anything but absolute http or https URLs.
	ErrUnsupportedURL = &Error{reason: "unsupported_url", message: "snapshot: url must be an absolute http or https url"}
	// ErrTooLarge is returned when the image exceeds the size cap.
	ErrTooLarge = &Error{reason: "too_large", message: "snapshot: image exceeds size limit"}
	// ErrNotImage is returned when the endpoint serves something other than an image.
	ErrNotImage = &Error{reason: "not_an_image", message: "snapshot: response is not an image"}
)

// StatusError is a non-2xx response from the camera.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("snapshot: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Reason is a stable machine-readable failure code.
func (e *StatusError) Reason() string { return "http_status" }

// Retryable reports true for server-side failures.
func (e *StatusError) Retryable() bool { return e.StatusCode >= http.StatusInternalServerError }

// NetworkError wraps a transport failure reaching the camera.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "snapshot: request failed: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// Reason is a stable machine-readable failure code.
func (e *NetworkError) Reason() string { return "network" }

// Retryable is always true for transport failures.
func (e *NetworkError) Retryable() bool { return true }

// Image is a downloaded still.
type Image struct {
	Data     []byte
	MIMEType string
}

// Options configures a Fetcher.
type Options struct {
	HTTPClient *http.Client
	MaxBytes   int64
	Logger     *slog.Logger
}

// Fetcher downloads snapshots. It is safe for concurrent use.
type Fetcher struct {
	http     *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates a fetcher.
func New(opts Options) *Fetcher {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.RemoteFetch}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{http: httpClient, maxBytes: maxBytes, logger: logging.OrDiscard(opts.Logger)}
}

// Fetch downloads one image from rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, ErrUnsupportedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "image/*, multipart/x-mixed-replace")

	res, err := f.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		f.logger.Warn("snapshot fetch rejected", "url", target.Redacted(), "status", res.StatusCode)
		return nil, &StatusError{StatusCode: res.StatusCode}
	}

	contentType := res.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)

	var img *Image
	if strings.HasPrefix(mediaType, "multipart/") {
		img, err = f.firstPart(res.Body, params["boundary"])
	} else {
		img, err = f.whole(res.Body, mediaType)
	}
	if err != nil {
		return nil, err
	}
	f.logger.Debug("snapshot fetched", "url", target.Redacted(), "bytes", len(img.Data), "mime", img.MIMEType)
	return img, nil
}

func (f *Fetcher) whole(body io.Reader, mediaType string) (*Image, error) {
	data, err := f.readCapped(body)
	if err != nil {
		return nil, err
	}
	return imageFrom(data, mediaType)
}

func (f *Fetcher) firstPart(body io.Reader, boundary string) (*Image, error) {
	// Many camera servers repeat the dashes in the boundary parameter.
	boundary = strings.TrimPrefix(boundary, "--")
	if boundary == "" {
		return nil, &NetworkError{Err: errors.New("multipart response without boundary")}
	}
	part, err := multipart.NewReader(body, boundary).NextPart()
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read first frame: %w", err)}
	}
	defer part.Close()

	data, err := f.readCapped(part)
	if err != nil {
		return nil, err
	}
	mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
	return imageFrom(data, mediaType)
}

func (f *Fetcher) readCapped(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}
	if n > f.maxBytes {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

func imageFrom(data []byte, mediaType string) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrNotImage
	}
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, ErrNotImage
	}
	return &Image{Data: data, MIMEType: mediaType}, nil
}
