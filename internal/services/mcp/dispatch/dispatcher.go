package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/timeouts"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/executor"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DynamicDevices/mcp-webcam/internal/services/mcp/dispatch"

// Method names handled by the dispatcher.
const (
	methodInitialize = "initialize"
	methodToolsList  = "tools/list"
	methodToolsCall  = "tools/call"
	methodPing       = "ping"

	notificationInitialized = "notifications/initialized"
	notificationCancelled   = "notifications/cancelled"
)

// MessageReader yields one framed message per call and io.EOF at the end.
type MessageReader interface {
	ReadMessage() ([]byte, error)
}

// MessageWriter emits one framed message per call.
type MessageWriter interface {
	WriteMessage(msg []byte) error
}

// Options configures a Dispatcher.
type Options struct {
	Registry       *registry.Registry
	Executor       *executor.Executor
	Writer         MessageWriter
	Logger         *slog.Logger
	ServerInfo     *mcp.Implementation
	Instructions   string
	Journal        storage.CallJournal
	TracerProvider trace.TracerProvider
	// DrainTimeout bounds the wait for in-flight calls after cancellation.
	DrainTimeout time.Duration
}

// Dispatcher routes decoded requests. Serve must be called at most once.
type Dispatcher struct {
	registry     *registry.Registry
	executor     *executor.Executor
	writer       MessageWriter
	logger       *slog.Logger
	serverInfo   *mcp.Implementation
	instructions string
	journal      storage.CallJournal
	tracer       trace.Tracer
	drainTimeout time.Duration

	inflight sync.WaitGroup
}

// New validates opts and returns a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	info := opts.ServerInfo
	if info == nil {
		info = &mcp.Implementation{Name: "mcp-webcam", Version: "dev"}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	drain := opts.DrainTimeout
	if drain <= 0 {
		drain = timeouts.Shutdown
	}
	return &Dispatcher{
		registry:     opts.Registry,
		executor:     opts.Executor,
		writer:       opts.Writer,
		logger:       logging.OrDiscard(opts.Logger),
		serverInfo:   info,
		instructions: opts.Instructions,
		journal:      opts.Journal,
		tracer:       tp.Tracer(tracerName),
		drainTimeout: drain,
	}, nil
}

type inbound struct {
	msg []byte
	err error
}

// Serve reads messages from r until the stream ends, a framing failure
// occurs, or ctx is cancelled. It returns nil on a clean end of stream after
// every in-flight call has been answered, the read error on a fatal framing
// failure, or ctx.Err() on cancellation.
func (d *Dispatcher) Serve(ctx context.Context, r MessageReader) error {
	lines := make(chan inbound)
	stop := make(chan struct{})
	defer close(stop)

	// ReadMessage cannot be interrupted, so reading runs apart from routing.
	go func() {
		for {
			msg, err := r.ReadMessage()
			select {
			case lines <- inbound{msg: msg, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down", "reason", ctx.Err())
			d.drain(d.drainTimeout)
			return ctx.Err()
		case in := <-lines:
			if in.err != nil {
				d.inflight.Wait()
				if errors.Is(in.err, io.EOF) {
					d.logger.Info("input closed")
					return nil
				}
				d.logger.Error("input stream failed", "err", in.err)
				return in.err
			}
			d.handleLine(ctx, in.msg)
		}
	}
}

func (d *Dispatcher) drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		d.logger.Warn("in-flight tool calls still running at shutdown", "waited", timeout)
	}
}

func (d *Dispatcher) handleLine(ctx context.Context, line []byte) {
	if !json.Valid(line) {
		d.logger.Warn("discarding unparseable message", "bytes", len(line))
		d.replyError(jsonrpc.ID{}, protocol.ParseError("message is not valid JSON"))
		return
	}
	id, exact := peekID(line)
	if !exact {
		d.logger.Warn("discarding request with unrepresentable id")
		d.replyError(jsonrpc.ID{}, protocol.InvalidRequest("id must be a string or an integer within ±2^53"))
		return
	}
	msg, err := jsonrpc.DecodeMessage(line)
	if err != nil {
		d.logger.Warn("discarding invalid request", "err", err)
		d.replyError(id, protocol.InvalidRequest(err.Error()))
		return
	}

	switch m := msg.(type) {
	case *jsonrpc.Request:
		if !m.ID.IsValid() {
			d.handleNotification(m)
			return
		}
		d.handleRequest(ctx, m)
	case *jsonrpc.Response:
		if m.Result == nil && m.Error == nil {
			d.replyError(m.ID, protocol.InvalidRequest("message has neither method nor result"))
			return
		}
		d.logger.Debug("ignoring response from client", "id", m.ID.Raw())
	}
}

func (d *Dispatcher) handleNotification(req *jsonrpc.Request) {
	switch req.Method {
	case notificationInitialized:
		d.logger.Debug("client initialized")
	case notificationCancelled:
		d.logger.Debug("cancellation not supported; call runs to completion")
	default:
		d.logger.Debug("ignoring notification", "method", req.Method)
	}
}

func (d *Dispatcher) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	if !paramsAreObject(req.Params) {
		d.replyError(req.ID, protocol.ParseError("params must be a JSON object"))
		return
	}
	d.logger.Debug("request", "id", req.ID.Raw(), "method", req.Method)

	switch req.Method {
	case methodInitialize:
		result, err := d.initialize(req.Params)
		if err != nil {
			d.replyError(req.ID, err)
			return
		}
		d.reply(protocol.EncodeResult(req.ID, result))
	case methodToolsList:
		d.reply(protocol.EncodeResult(req.ID, &mcp.ListToolsResult{Tools: d.registry.Tools()}))
	case methodPing:
		d.reply(protocol.EncodeResult(req.ID, struct{}{}))
	case methodToolsCall:
		d.handleToolCall(ctx, req)
	default:
		d.replyError(req.ID, protocol.MethodNotFound(req.Method))
	}
}

func paramsAreObject(params json.RawMessage) bool {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	return trimmed[0] == '{'
}

func (d *Dispatcher) replyError(id jsonrpc.ID, err error) {
	d.reply(protocol.EncodeError(id, protocol.MapError(err)))
}

func (d *Dispatcher) reply(line []byte) {
	if err := d.writer.WriteMessage(line); err != nil {
		d.logger.Error("write response failed", "err", err)
	}
}
