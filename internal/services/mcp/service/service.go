package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/camera"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/timeouts"
	"github.com/DynamicDevices/mcp-webcam/internal/remote/shodan"
	"github.com/DynamicDevices/mcp-webcam/internal/remote/snapshot"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/dispatch"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/domain"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/executor"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage/sqlite"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/transport"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

const serverName = "mcp-webcam"

const instructions = "Use list_cameras to discover local cameras and capture_image to take a JPEG snapshot. " +
	"When remote tools are enabled, search_webcams finds publicly reachable webcams and " +
	"capture_remote_image fetches a snapshot from one of them."

// Config holds runtime settings for one server process.
type Config struct {
	Version          string
	ShodanAPIKey     string
	ShodanBaseURL    string
	BlockingWorkers  int
	RemoteTimeout    time.Duration
	MaxMessageBytes  int
	SyntheticCameras int
	JournalPath      string
	Logger           *slog.Logger
	TracerProvider   trace.TracerProvider
}

// Server is an assembled tool server ready to serve one stream.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *registry.Registry
	executor *executor.Executor
	journal  *sqlite.Store
}

// NewServer builds every collaborator named by cfg. Close releases them.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	logger := logging.OrDiscard(cfg.Logger)

	var driver camera.Driver = camera.NoDevices{}
	if cfg.SyntheticCameras > 0 {
		driver = camera.NewSynthetic(cfg.SyntheticCameras)
		logger.Info("using synthetic cameras", "count", cfg.SyntheticCameras)
	}

	opts := domain.Options{
		ShodanAPIKey: cfg.ShodanAPIKey,
		Cameras:      camera.NewManager(driver, logger),
	}
	if opts.RemoteEnabled() {
		opts.Searcher = shodan.New(shodan.Options{
			APIKey:     strings.TrimSpace(cfg.ShodanAPIKey),
			BaseURL:    cfg.ShodanBaseURL,
			QueryPause: timeouts.ShodanQueryPause,
			Logger:     logger,
		})
		opts.Fetcher = snapshot.New(snapshot.Options{Logger: logger})
	} else {
		logger.Info("remote webcam tools disabled; SHODAN_API_KEY is not set")
	}

	reg, err := domain.BuildRegistry(opts)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		executor: executor.New(executor.Options{
			BlockingWorkers: cfg.BlockingWorkers,
			RemoteTimeout:   cfg.RemoteTimeout,
			Logger:          logger,
			TracerProvider:  cfg.TracerProvider,
		}),
	}

	if path := strings.TrimSpace(cfg.JournalPath); path != "" {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open call journal: %w", err)
		}
		srv.journal = store
		logger.Info("call journal enabled", "path", path)
	}

	logger.Info("tool registry ready", "tools", reg.Len())
	return srv, nil
}

// Registry exposes the immutable tool catalog.
func (s *Server) Registry() *registry.Registry { return s.registry }

// Serve answers requests read from in on out until in ends, a framing
// failure occurs, or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	version := s.cfg.Version
	if version == "" {
		version = "dev"
	}
	var journal storage.CallJournal
	if s.journal != nil {
		journal = s.journal
	}

	d, err := dispatch.New(dispatch.Options{
		Registry:       s.registry,
		Executor:       s.executor,
		Writer:         transport.NewWriter(out),
		Logger:         s.logger,
		ServerInfo:     &mcp.Implementation{Name: serverName, Version: version},
		Instructions:   instructions,
		Journal:        journal,
		TracerProvider: s.cfg.TracerProvider,
	})
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	return d.Serve(ctx, transport.NewReader(in, s.cfg.MaxMessageBytes))
}

// Close releases the call journal.
func (s *Server) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// Run serves the process stdio and blocks until the client disconnects or ctx
// is cancelled. Cancellation is a normal shutdown and returns nil.
func Run(ctx context.Context, cfg Config) error {
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			srv.logger.Warn("close server", "err", err)
		}
	}()

	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
