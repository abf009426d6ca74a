// Package mcp parses MCP webcam server configuration and runs the stdio server.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	platformcmd "github.com/DynamicDevices/mcp-webcam/internal/platform/cmd"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/otel"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	ShodanAPIKey     string        `env:"SHODAN_API_KEY"`
	ShodanURL        string        `env:"MCP_WEBCAM_SHODAN_URL"         envDefault:"https://api.shodan.io"`
	LogLevel         string        `env:"MCP_WEBCAM_LOG_LEVEL"          envDefault:"info"`
	BlockingWorkers  int           `env:"MCP_WEBCAM_BLOCKING_WORKERS"   envDefault:"2"`
	RemoteTimeout    time.Duration `env:"MCP_WEBCAM_REMOTE_TIMEOUT"     envDefault:"15s"`
	MaxMessageBytes  int           `env:"MCP_WEBCAM_MAX_MESSAGE_BYTES"  envDefault:"16777216"`
	SyntheticCameras int           `env:"MCP_WEBCAM_SYNTHETIC_CAMERAS"  envDefault:"0"`
	JournalPath      string        `env:"MCP_WEBCAM_JOURNAL_PATH"`
	OTelEndpoint     string        `env:"MCP_WEBCAM_OTEL_ENDPOINT"`
	OTelEnabled      bool          `env:"MCP_WEBCAM_OTEL_ENABLED"       envDefault:"true"`

	// Version is stamped by the binary, not read from the environment.
	Version string
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.ShodanURL, "shodan-url", cfg.ShodanURL, "Shodan API base URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.IntVar(&cfg.BlockingWorkers, "blocking-workers", cfg.BlockingWorkers, "concurrent local camera captures")
	fs.DurationVar(&cfg.RemoteTimeout, "remote-timeout", cfg.RemoteTimeout, "deadline for remote webcam tools")
	fs.IntVar(&cfg.SyntheticCameras, "synthetic-cameras", cfg.SyntheticCameras, "number of virtual test-pattern cameras")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite tool call journal path (disabled when empty)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.BlockingWorkers < 1 {
		return fmt.Errorf("blocking workers must be at least 1, got %d", c.BlockingWorkers)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("remote timeout must be positive, got %s", c.RemoteTimeout)
	}
	if c.SyntheticCameras < 0 {
		return fmt.Errorf("synthetic cameras must not be negative, got %d", c.SyntheticCameras)
	}
	if c.MaxMessageBytes < 0 {
		return fmt.Errorf("max message bytes must not be negative, got %d", c.MaxMessageBytes)
	}
	return nil
}

// Run starts the MCP webcam server on stdio.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCPWebcam, platformcmd.RunOptions{
		Telemetry: otel.Options{
			Endpoint:       cfg.OTelEndpoint,
			Disabled:       !cfg.OTelEnabled,
			ServiceVersion: cfg.Version,
		},
	}, func(ctx context.Context) error {
		return service.Run(ctx, cfg.serviceConfig(logger))
	})
}
