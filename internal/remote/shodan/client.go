// Package shodan discovers publicly reachable webcams through the Shodan
// search API.
package shodan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/timeouts"
	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultBaseURL is the public Shodan API.
	DefaultBaseURL = "https://api.shodan.io"
	// DefaultLimit caps a search when the caller gives no limit.
	DefaultLimit = 20

	queriesPerSearch = 3
	maxAttempts      = 3
	maxErrorBody     = 4 << 10
)

// webcamQueries are banner searches that commonly surface camera servers.
// Only the first queriesPerSearch run per search to stay inside rate limits.
var webcamQueries = []string{
	"Server: SQ-WEBCAM",
	"Server: yawcam",
	"Server: webcamXP",
	`"Server: IP Webcam Server"`,
	`"200 OK" "Content-Type: multipart/x-mixed-replace"`,
	`port:8080 "mjpeg"`,
	`port:8081 "mjpeg"`,
	`port:554 "rtsp"`,
	`"axis video server"`,
	`"live view axis"`,
	`inurl:"view/view.shtml"`,
	`inurl:"ViewerFrame?Mode="`,
	`inurl:"MultiCameraFrame?Mode="`,
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// QueryPause spaces consecutive queries of one search.
	QueryPause time.Duration
	// NewBackOff returns the retry policy for one request.
	NewBackOff func() backoff.BackOff
	Logger     *slog.Logger
}

// Client calls the Shodan API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	pause      time.Duration
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// New creates a client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.ShodanRequest}
	}
	pause := opts.QueryPause
	if pause < 0 {
		pause = 0
	}
	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			return b
		}
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		http:       httpClient,
		pause:      pause,
		newBackOff: newBackOff,
		logger:     logging.OrDiscard(opts.Logger),
	}
}

// SearchWebcams runs the webcam queries and returns unique endpoints sorted
// by IP, at most limit of them. A rejected key aborts the search; other
// query failures are skipped unless every query fails.
func (c *Client) SearchWebcams(ctx context.Context, limit int) ([]Webcam, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	perQuery := max(1, limit/queriesPerSearch)

	var (
		found     []Webcam
		lastErr   error
		succeeded int
	)
	for i, query := range webcamQueries[:queriesPerSearch] {
		if i > 0 && c.pause > 0 {
			if err := sleep(ctx, c.pause); err != nil {
				return nil, err
			}
		}
		resp, err := c.Search(ctx, query, perQuery)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("shodan query failed", "query", query, "err", err)
			lastErr = err
			continue
		}
		succeeded++
		for _, match := range resp.Matches {
			if cam, ok := ToWebcam(match); ok {
				found = append(found, cam)
			}
		}
	}
	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}

	unique := dedupeByIP(found)
	if len(unique) > limit {
		unique = unique[:limit]
	}
	c.logger.Info("shodan webcam search finished", "unique", len(unique), "queries_ok", succeeded)
	return unique, nil
}

func dedupeByIP(cams []Webcam) []Webcam {
	slices.SortStableFunc(cams, func(a, b Webcam) int { return strings.Compare(a.IP, b.IP) })
	return slices.CompactFunc(cams, func(a, b Webcam) bool { return a.IP == b.IP })
}

// Search runs one query against /shodan/host/search. Network and server
// failures are retried; client errors are not.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	op := func() (*SearchResponse, error) {
		resp, err := c.searchOnce(ctx, query, limit)
		if err == nil {
			return resp, nil
		}
		var apiErr *APIError
		var netErr *NetworkError
		if errors.As(err, &netErr) || (errors.As(err, &apiErr) && apiErr.Retryable()) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("retrying shodan query", "query", query, "in", next, "err", err)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Unwrap()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) searchOnce(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/shodan/host/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build shodan request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Err: redactKey(err, c.apiKey)}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		var out SearchResponse
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			return nil, &NetworkError{Err: fmt.Errorf("decode response: %w", err)}
		}
		return &out, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

// redactKey keeps the API key out of error strings, which url.Error would
// otherwise carry through the request URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	for _, secret := range []string{key, url.QueryEscape(key)} {
		msg = strings.ReplaceAll(msg, secret, "REDACTED")
	}
	if msg == err.Error() {
		return err
	}
	return errors.New(msg)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
