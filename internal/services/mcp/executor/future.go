package executor

import (
	"context"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
)

// Future is the pending outcome of a submitted call. It resolves exactly once.
type Future struct {
	done   chan struct{}
	result *protocol.ToolResult
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(result *protocol.ToolResult, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the call resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (*protocol.ToolResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
