package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/executor"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/registry"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/transport"
)

// response is a decoded reply line.
type response struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int64               `json:"code"`
		Message string              `json:"message"`
		Data    *protocol.ErrorData `json:"data"`
	} `json:"error"`
	raw string
}

type harness struct {
	t      *testing.T
	in     *io.PipeWriter
	lines  chan response
	done   chan error
	cancel context.CancelFunc
}

func startHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	opts.Writer = transport.NewWriter(outW)
	if opts.Executor == nil {
		opts.Executor = executor.New(executor.Options{})
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:      t,
		in:     inW,
		lines:  make(chan response, 64),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		err := d.Serve(ctx, transport.NewReader(inR, 0))
		_ = outW.Close()
		h.done <- err
	}()
	go func() {
		defer close(h.lines)
		scanner := bufio.NewScanner(outR)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			var r response
			if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
				t.Errorf("server wrote invalid JSON %q: %v", scanner.Text(), err)
				continue
			}
			r.raw = scanner.Text()
			h.lines <- r
		}
	}()
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
	})
	return h
}

func (h *harness) send(line string) {
	h.t.Helper()
	if _, err := io.WriteString(h.in, line+"\n"); err != nil {
		h.t.Fatalf("send: %v", err)
	}
}

func (h *harness) next() response {
	h.t.Helper()
	select {
	case r, ok := <-h.lines:
		if !ok {
			h.t.Fatal("output closed before expected response")
		}
		return r
	case <-time.After(5 * time.Second):
		h.t.Fatal("timed out waiting for response")
	}
	return response{}
}

// closeInput ends the stream and returns any responses written after the
// last next call together with Serve's result.
func (h *harness) closeInput() ([]response, error) {
	h.t.Helper()
	_ = h.in.Close()
	var rest []response
	for r := range h.lines {
		rest = append(rest, r)
	}
	select {
	case err := <-h.done:
		return rest, err
	case <-time.After(5 * time.Second):
		h.t.Fatal("Serve did not return")
	}
	return nil, nil
}

func mustRegistry(t *testing.T, entries ...registry.Entry) *registry.Registry {
	t.Helper()
	var b registry.Builder
	b.Register(entries...)
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func toolEntry(name string, mode registry.Mode, props []schema.Property, fn registry.HandlerFunc) registry.Entry {
	return registry.Entry{
		Descriptor: registry.Descriptor{Name: name, Description: name, Schema: schema.Object{Properties: props}},
		Mode:       mode,
		Handler:    fn,
	}
}

func echoEntry() registry.Entry {
	return toolEntry("echo", registry.ModeBlocking,
		[]schema.Property{{Name: "text", Kind: schema.String, Required: true}},
		func(_ context.Context, args schema.Arguments) (*protocol.ToolResult, error) {
			return protocol.NewResult(protocol.Text(args.String("text"))), nil
		})
}

type memoryJournal struct {
	mu      sync.Mutex
	records []storage.CallRecord
}

func (j *memoryJournal) RecordCall(_ context.Context, rec storage.CallRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memoryJournal) all() []storage.CallRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]storage.CallRecord(nil), j.records...)
}
