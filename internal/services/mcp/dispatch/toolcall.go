package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/id"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/executor"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolCall validates a tools/call request on the read loop and hands
// valid calls to the executor. Rejections are answered immediately.
func (d *Dispatcher) handleToolCall(ctx context.Context, req *jsonrpc.Request) {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			d.replyError(req.ID, protocol.InvalidParams("", "params", err.Error()))
			return
		}
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		d.replyError(req.ID, protocol.InvalidParams("", "name", "tool name is required"))
		return
	}
	entry, ok := d.registry.Lookup(name)
	if !ok {
		d.replyError(req.ID, protocol.InvalidParams(name, "name", "unknown tool"))
		return
	}
	args, err := schema.DecodeArguments(params.Arguments)
	if err != nil {
		d.replyError(req.ID, protocol.InvalidParams(name, "arguments", err.Error()))
		return
	}
	if err := schema.Validate(entry.Descriptor.Schema, args); err != nil {
		d.replyError(req.ID, protocol.WithTool(err, name))
		return
	}

	d.inflight.Add(1)
	go d.runToolCall(ctx, req.ID, entry, args)
}

func (d *Dispatcher) runToolCall(ctx context.Context, reqID jsonrpc.ID, entry registry.Entry, args schema.Arguments) {
	defer d.inflight.Done()

	// Calls run to completion even when the session is being torn down.
	ctx = context.WithoutCancel(ctx)
	requestID := fmt.Sprint(reqID.Raw())
	name := entry.Descriptor.Name
	ctx, span := d.tracer.Start(ctx, "mcp.tools/call", trace.WithAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("rpc.jsonrpc.request_id", requestID),
	))
	defer span.End()

	started := time.Now()
	future := d.executor.Submit(ctx, executor.Call{RequestID: requestID, Entry: entry, Args: args})
	result, err := future.Wait(ctx)

	record := storage.CallRecord{
		RequestID: requestID,
		Tool:      name,
		Mode:      entry.Mode.String(),
		Outcome:   storage.OutcomeOK,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if callID, err := id.NewID(); err == nil {
		record.CallID = callID
	}
	if sc := span.SpanContext(); sc.IsValid() {
		record.TraceID = sc.TraceID().String()
	}

	if err != nil {
		rpcErr := protocol.MapError(err)
		record.Outcome = storage.OutcomeError
		record.ErrorCode = rpcErr.Code
		span.SetStatus(codes.Error, rpcErr.Message)
		d.logger.Info("tool call failed", "id", requestID, "tool", name, "code", rpcErr.Code, "err", err)
		d.reply(protocol.EncodeError(reqID, rpcErr))
	} else {
		d.reply(protocol.EncodeResult(reqID, result))
	}

	d.recordCall(ctx, record)
}

func (d *Dispatcher) recordCall(ctx context.Context, record storage.CallRecord) {
	if d.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := d.journal.RecordCall(ctx, record); err != nil {
		d.logger.Warn("journal write failed", "tool", record.Tool, "err", err)
	}
}
