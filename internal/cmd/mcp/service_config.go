package mcp

import (
	"log/slog"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/service"
)

func (c Config) serviceConfig(logger *slog.Logger) service.Config {
	return service.Config{
		Version:          c.Version,
		ShodanAPIKey:     c.ShodanAPIKey,
		ShodanBaseURL:    c.ShodanURL,
		BlockingWorkers:  c.BlockingWorkers,
		RemoteTimeout:    c.RemoteTimeout,
		MaxMessageBytes:  c.MaxMessageBytes,
		SyntheticCameras: c.SyntheticCameras,
		JournalPath:      c.JournalPath,
		Logger:           logger,
	}
}
