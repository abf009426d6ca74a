// Package registry holds the immutable catalog of tools offered by the server.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Mode tells the executor how a tool runs.
type Mode int

const (
	// ModeBlocking tools hold a local resource and run on the bounded pool.
	ModeBlocking Mode = iota
	// ModeAsync tools wait on the network and run under a deadline.
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Descriptor is the advertised shape of a tool.
type Descriptor struct {
	Name        string
	Description string
	Schema      schema.Object
}

// Tool renders the descriptor in MCP wire form.
func (d Descriptor) Tool() *mcp.Tool {
	return &mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.Schema.JSONSchema(),
	}
}

// Handler executes a tool with validated arguments.
type Handler interface {
	Call(ctx context.Context, args schema.Arguments) (*protocol.ToolResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args schema.Arguments) (*protocol.ToolResult, error)

// Call calls f.
func (f HandlerFunc) Call(ctx context.Context, args schema.Arguments) (*protocol.ToolResult, error) {
	return f(ctx, args)
}

// Entry binds a descriptor to its execution mode and handler.
type Entry struct {
	Descriptor Descriptor
	Mode       Mode
	Handler    Handler
}

// ErrDuplicateTool is returned by Build when two entries share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Builder collects entries before the registry is frozen.
type Builder struct {
	entries []Entry
}

// Register appends an entry. Validation happens in Build.
func (b *Builder) Register(entries ...Entry) {
	b.entries = append(b.entries, entries...)
}

// Build validates the collected entries and returns an immutable registry.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(b.entries)),
		byName:  make(map[string]int, len(b.entries)),
	}
	for _, entry := range b.entries {
		name := entry.Descriptor.Name
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("register tool: name is required")
		}
		if entry.Handler == nil {
			return nil, fmt.Errorf("register tool %q: handler is required", name)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("register tool %q: %w", name, ErrDuplicateTool)
		}
		r.byName[name] = len(r.entries)
		r.entries = append(r.entries, entry)
	}
	return r, nil
}

// Registry is read-only after Build and safe for concurrent use.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// List returns descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.Descriptor
	}
	return out
}

// Tools returns the MCP wire form of every tool in registration order.
func (r *Registry) Tools() []*mcp.Tool {
	out := make([]*mcp.Tool, len(r.entries))
	for i, entry := range r.entries {
		out[i] = entry.Descriptor.Tool()
	}
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.entries) }
