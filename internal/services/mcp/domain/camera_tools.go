package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/camera"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
)

// ListCamerasTool defines the list_cameras tool.
func ListCamerasTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "list_cameras",
		Description: "List all available local camera devices",
	}
}

// ListCamerasHandler enumerates local devices.
func ListCamerasHandler(cams *camera.Manager) registry.HandlerFunc {
	return func(context.Context, schema.Arguments) (*protocol.ToolResult, error) {
		devices := cams.List()
		return protocol.NewResult(
			protocol.Text(fmt.Sprintf("Found %d camera(s)", len(devices))),
		).WithMetadata(map[string]any{
			"cameras": devices,
			"total":   len(devices),
		}), nil
	}
}

// CaptureImageTool defines the capture_image tool.
func CaptureImageTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "capture_image",
		Description: "Capture an image from a local camera",
		Schema: schema.Object{Properties: []schema.Property{
			{
				Name:        "camera_index",
				Kind:        schema.Integer,
				Description: "Camera index to capture from (default: 0)",
				Minimum:     schema.Min(0),
				Default:     0,
			},
		}},
	}
}

// CaptureImageHandler captures one JPEG frame. The device lock is held by
// the camera manager for the duration of the capture.
func CaptureImageHandler(cams *camera.Manager) registry.HandlerFunc {
	return func(_ context.Context, args schema.Arguments) (*protocol.ToolResult, error) {
		index := int(args.Int("camera_index", 0))
		frame, err := cams.Capture(index)
		if err != nil {
			return nil, err
		}
		timestamp := frame.CapturedAt.UTC().Format(time.RFC3339)
		return protocol.NewResult(
			protocol.Image(frame.Data, frame.MIMEType),
			protocol.Text(fmt.Sprintf("Captured %dx%d image from camera %d at %s", frame.Width, frame.Height, frame.Index, timestamp)),
		).WithMetadata(map[string]any{
			"width":        frame.Width,
			"height":       frame.Height,
			"camera_index": frame.Index,
			"timestamp":    timestamp,
			"mime_type":    frame.MIMEType,
			"size_bytes":   len(frame.Data),
		}), nil
	}
}

// GetCameraInfoTool defines the get_camera_info tool.
func GetCameraInfoTool() registry.Descriptor {
	return registry.Descriptor{
		Name:        "get_camera_info",
		Description: "Get information about available local cameras",
	}
}

// GetCameraInfoHandler reports the device list and the last used device.
func GetCameraInfoHandler(cams *camera.Manager) registry.HandlerFunc {
	return func(context.Context, schema.Arguments) (*protocol.ToolResult, error) {
		devices := cams.List()
		var current any
		label := "none"
		if index, ok := cams.Current(); ok {
			current = index
			label = fmt.Sprint(index)
		}
		return protocol.NewResult(
			protocol.Text(fmt.Sprintf("Camera info: %d total cameras, current: %s", len(devices), label)),
		).WithMetadata(map[string]any{
			"available_cameras": devices,
			"current_camera":    current,
			"total_cameras":     len(devices),
		}), nil
	}
}
