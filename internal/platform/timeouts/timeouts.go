// Package timeouts defines shared timeout constants used across the tool
// server. Centralizing these values keeps the executor deadline, the HTTP
// client timeouts and the shutdown drain consistent with each other.
package timeouts

import "time"

// RemoteTool caps the total time of one network-backed tool call. It must stay
// above RemoteFetch so the HTTP client reports its own error first.
const RemoteTool = 15 * time.Second

// RemoteFetch limits a single snapshot download from a remote webcam.
const RemoteFetch = 10 * time.Second

// ShodanRequest limits a single Shodan API request.
const ShodanRequest = 10 * time.Second

// ShodanQueryPause spaces consecutive Shodan queries to stay under rate limits.
const ShodanQueryPause = 500 * time.Millisecond

// Shutdown limits how long telemetry and storage get to flush on exit.
const Shutdown = 5 * time.Second
