// Package executor runs tool handlers off the read loop.
//
// Blocking tools share a bounded pool so a slow device cannot starve the
// process, and async tools run under a deadline. Every outcome is delivered
// through a Future, and every failure is classified as a protocol.ToolError.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/logging"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/timeouts"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	tracerName = "github.com/DynamicDevices/mcp-webcam/internal/services/mcp/executor"
	// DefaultBlockingWorkers sizes the blocking pool when Options leaves it unset.
	DefaultBlockingWorkers = 2
)

// Options configures an Executor.
type Options struct {
	BlockingWorkers int
	RemoteTimeout   time.Duration
	Logger          *slog.Logger
	TracerProvider  trace.TracerProvider
}

// Call is one tool invocation.
type Call struct {
	RequestID string
	Entry     registry.Entry
	Args      schema.Arguments
}

// Executor bridges the read loop to tool handlers.
type Executor struct {
	pool          *semaphore.Weighted
	remoteTimeout time.Duration
	logger        *slog.Logger
	tracer        trace.Tracer
}

// New creates an executor.
func New(opts Options) *Executor {
	workers := opts.BlockingWorkers
	if workers <= 0 {
		workers = DefaultBlockingWorkers
	}
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = timeouts.RemoteTool
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Executor{
		pool:          semaphore.NewWeighted(int64(workers)),
		remoteTimeout: timeout,
		logger:        logging.OrDiscard(opts.Logger),
		tracer:        tp.Tracer(tracerName),
	}
}

// Submit schedules call and returns immediately.
func (e *Executor) Submit(ctx context.Context, call Call) *Future {
	f := newFuture()
	go func() {
		f.resolve(e.execute(ctx, call))
	}()
	return f
}

func (e *Executor) execute(ctx context.Context, call Call) (*protocol.ToolResult, error) {
	name := call.Entry.Descriptor.Name
	ctx, span := e.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("mcp.tool.mode", call.Entry.Mode.String()),
		attribute.String("rpc.jsonrpc.request_id", call.RequestID),
	))
	defer span.End()

	started := time.Now()
	var (
		result *protocol.ToolResult
		err    error
	)
	if call.Entry.Mode == registry.ModeAsync {
		result, err = e.runAsync(ctx, call)
	} else {
		result, err = e.runBlocking(ctx, call)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("tool failed", "tool", name, "request_id", call.RequestID, "duration", time.Since(started), "err", err)
		return nil, err
	}
	e.logger.Debug("tool completed", "tool", name, "request_id", call.RequestID, "duration", time.Since(started))
	return result, nil
}

func (e *Executor) runBlocking(ctx context.Context, call Call) (*protocol.ToolResult, error) {
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return nil, &protocol.ToolError{Kind: protocol.KindExecution, Tool: call.Entry.Descriptor.Name, Err: fmt.Errorf("acquire worker: %w", err)}
	}
	defer e.pool.Release(1)
	return e.invoke(ctx, call)
}

type outcome struct {
	result *protocol.ToolResult
	err    error
}

func (e *Executor) runAsync(ctx context.Context, call Call) (*protocol.ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := e.invoke(ctx, call)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(call, ctx.Err())
		}
		return out.result, out.err
	case <-ctx.Done():
		// The handler keeps running until it observes ctx; its outcome is dropped.
		return nil, timeoutError(call, ctx.Err())
	}
}

func timeoutError(call Call, err error) error {
	return &protocol.ToolError{Kind: protocol.KindTimeout, Tool: call.Entry.Descriptor.Name, Err: err}
}

func (e *Executor) invoke(ctx context.Context, call Call) (result *protocol.ToolResult, err error) {
	name := call.Entry.Descriptor.Name
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool handler panicked", "tool", name, "request_id", call.RequestID, "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = &protocol.ToolError{Kind: protocol.KindInternal, Tool: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = call.Entry.Handler.Call(ctx, call.Args)
	if err != nil {
		var toolErr *protocol.ToolError
		if errors.As(err, &toolErr) {
			return nil, err
		}
		return nil, &protocol.ToolError{Kind: protocol.KindExecution, Tool: name, Err: err}
	}
	if result == nil {
		result = &protocol.ToolResult{}
	}
	return result, nil
}
