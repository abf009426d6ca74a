package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/DynamicDevices/mcp-webcam/internal/cmd/mcp"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/config"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/transport"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// main serves MCP webcam tools over stdio.
func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("[MCP] ")

	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf(config.ExitStartup, "parse config: %v", err)
	}
	cfg.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		stop()
		if errors.Is(err, transport.ErrFraming) {
			config.Exitf(config.ExitTransport, "transport failure: %v", err)
		}
		config.Exitf(config.ExitStartup, "failed to serve MCP: %v", err)
	}
}
