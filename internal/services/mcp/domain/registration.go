package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/camera"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
)

const (
	cameraToolsModuleName = "camera-tools"
	remoteToolsModuleName = "remote-webcam-tools"
)

// Options carries everything the tool catalog depends on. Remote tools are
// offered only when an API key is present.
type Options struct {
	ShodanAPIKey string
	Cameras      *camera.Manager
	Searcher     WebcamSearcher
	Fetcher      SnapshotFetcher
	Now          func() time.Time
}

// RemoteEnabled reports whether remote webcam tools are offered.
func (o Options) RemoteEnabled() bool {
	return strings.TrimSpace(o.ShodanAPIKey) != ""
}

type registrationModule struct {
	name    string
	enabled bool
	entries func() ([]registry.Entry, error)
}

func registrationModules(opts Options) []registrationModule {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return []registrationModule{
		{
			name:    cameraToolsModuleName,
			enabled: true,
			entries: func() ([]registry.Entry, error) {
				cams := opts.Cameras
				if cams == nil {
					cams = camera.NewManager(nil, nil)
				}
				return []registry.Entry{
					{Descriptor: ListCamerasTool(), Mode: registry.ModeBlocking, Handler: ListCamerasHandler(cams)},
					{Descriptor: CaptureImageTool(), Mode: registry.ModeBlocking, Handler: CaptureImageHandler(cams)},
					{Descriptor: GetCameraInfoTool(), Mode: registry.ModeBlocking, Handler: GetCameraInfoHandler(cams)},
				}, nil
			},
		},
		{
			name:    remoteToolsModuleName,
			enabled: opts.RemoteEnabled(),
			entries: func() ([]registry.Entry, error) {
				if opts.Searcher == nil || opts.Fetcher == nil {
					return nil, fmt.Errorf("searcher and fetcher are required")
				}
				return []registry.Entry{
					{Descriptor: SearchWebcamsTool(), Mode: registry.ModeAsync, Handler: SearchWebcamsHandler(opts.Searcher)},
					{Descriptor: CaptureRemoteImageTool(), Mode: registry.ModeAsync, Handler: CaptureRemoteImageHandler(opts.Fetcher, now)},
					{Descriptor: ListRemoteWebcamsTool(), Mode: registry.ModeAsync, Handler: ListRemoteWebcamsHandler()},
				}, nil
			},
		},
	}
}

// BuildRegistry assembles the immutable tool catalog for opts.
func BuildRegistry(opts Options) (*registry.Registry, error) {
	var builder registry.Builder
	for _, module := range registrationModules(opts) {
		if !module.enabled {
			continue
		}
		entries, err := module.entries()
		if err != nil {
			return nil, fmt.Errorf("register tool module %q: %w", module.name, err)
		}
		builder.Register(entries...)
	}
	return builder.Build()
}
