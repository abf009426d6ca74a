package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/remote/shodan"
	"github.com/DynamicDevices/mcp-webcam/internal/remote/snapshot"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
)

// WebcamSearcher discovers remote webcams.
type WebcamSearcher interface {
	SearchWebcams(ctx context.Context, limit int) ([]shodan.Webcam, error)
}

// SnapshotFetcher downloads a still from a remote camera.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, url string) (*snapshot.Image, error)
}

const (
	defaultSearchLimit = shodan.DefaultLimit
	defaultRemotePort  = 80
)

// SearchWebcamsTool defines the search_webcams tool.
func SearchWebcamsTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "search_webcams",
		Description: "Search for remote webcams using Shodan",
		Schema: schema.Object{Properties: []schema.Property{
			{
				Name:        "limit",
				Kind:        schema.Integer,
				Description: "Maximum number of results to return (default: 20)",
				Minimum:     schema.Min(1),
				Default:     defaultSearchLimit,
			},
		}},
	}
}

// SearchWebcamsHandler runs a Shodan webcam search.
func SearchWebcamsHandler(searcher WebcamSearcher) registry.HandlerFunc {
	return func(ctx context.Context, args schema.Arguments) (*protocol.ToolResult, error) {
		limit := int(args.Int("limit", defaultSearchLimit))
		webcams, err := searcher.SearchWebcams(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("search webcams: %w", err)
		}
		if webcams == nil {
			webcams = []shodan.Webcam{}
		}
		listing, err := json.MarshalIndent(webcams, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode webcams: %w", err)
		}
		return protocol.NewResult(
			protocol.Text(fmt.Sprintf("Found %d remote webcam(s) via Shodan search", len(webcams))),
			protocol.Text(string(listing)),
		).WithMetadata(map[string]any{
			"webcams": webcams,
			"total":   len(webcams),
		}), nil
	}
}

// CaptureRemoteImageTool defines the capture_remote_image tool.
func CaptureRemoteImageTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "capture_remote_image",
		Description: "Capture image from a remote webcam",
		Schema: schema.Object{Properties: []schema.Property{
			{Name: "url", Kind: schema.String, Description: "Webcam URL to capture from", Required: true},
			{Name: "ip", Kind: schema.String, Description: "IP address of the webcam"},
			{Name: "port", Kind: schema.Integer, Description: "Port number of the webcam", Default: defaultRemotePort},
		}},
	}
}

// CaptureRemoteImageHandler fetches one still from a remote camera.
func CaptureRemoteImageHandler(fetcher SnapshotFetcher, now func() time.Time) registry.HandlerFunc {
	return func(ctx context.Context, args schema.Arguments) (*protocol.ToolResult, error) {
		url := args.String("url")
		ip := args.String("ip")
		if ip == "" {
			ip = "unknown"
		}
		port := args.Int("port", defaultRemotePort)

		img, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		return protocol.NewResult(
			protocol.Image(img.Data, img.MIMEType),
			protocol.Text("Captured image from remote webcam: "+url),
		).WithMetadata(map[string]any{
			"source":     "remote_webcam",
			"url":        url,
			"ip":         ip,
			"port":       port,
			"size_bytes": len(img.Data),
			"mime_type":  img.MIMEType,
			"timestamp":  now().UTC().Format(time.RFC3339),
		}), nil
	}
}

// ListRemoteWebcamsTool defines the list_remote_webcams tool.
func ListRemoteWebcamsTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "list_remote_webcams",
		Description: "List discovered remote webcams",
	}
}

// ListRemoteWebcamsHandler points callers at search_webcams. Discovered
// endpoints are never cached, so there is nothing to list.
func ListRemoteWebcamsHandler() registry.HandlerFunc {
	return func(context.Context, schema.Arguments) (*protocol.ToolResult, error) {
		return protocol.NewResult(
			protocol.Text("Use the 'search_webcams' tool to discover remote webcams. Discovered webcams are not cached between calls."),
		).WithMetadata(map[string]any{"cached": false}), nil
	}
}
