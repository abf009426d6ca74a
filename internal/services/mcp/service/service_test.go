package service

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage/sqlite"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/transport"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// connect serves srv over in-memory pipes and returns a go-sdk client session
// plus a channel yielding Serve's result.
func connect(t *testing.T, srv *Server) (*mcp.ClientSession, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ctx, serverR, serverW)
		_ = serverW.Close()
		done <- err
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "conformance", Version: "test"}, nil)
	session, err := client.Connect(ctx, &mcp.IOTransport{Reader: clientR, Writer: clientW}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return session, done
}

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	return nil
}

func TestClientSessionAgainstLocalCameras(t *testing.T) {
	srv := newServer(t, Config{SyntheticCameras: 2, Version: "1.2.3"})
	session, done := connect(t, srv)
	ctx := context.Background()

	initResult := session.InitializeResult()
	if initResult.ServerInfo == nil || initResult.ServerInfo.Name != "mcp-webcam" || initResult.ServerInfo.Version != "1.2.3" {
		t.Fatalf("server info = %+v", initResult.ServerInfo)
	}
	if initResult.Capabilities == nil || initResult.Capabilities.Tools == nil {
		t.Fatalf("capabilities = %+v", initResult.Capabilities)
	}

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools.Tools) != 3 {
		t.Fatalf("tools = %d, want 3", len(tools.Tools))
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "list_cameras"})
	if err != nil {
		t.Fatalf("list_cameras: %v", err)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || text.Text != "Found 2 camera(s)" {
		t.Fatalf("list_cameras content = %#v", res.Content)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "capture_image",
		Arguments: map[string]any{"camera_index": 1},
	})
	if err != nil {
		t.Fatalf("capture_image: %v", err)
	}
	img, ok := res.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("capture content = %#v", res.Content)
	}
	if img.MIMEType != "image/jpeg" {
		t.Fatalf("mime = %q", img.MIMEType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(img.Data)); err != nil {
		t.Fatalf("decode captured jpeg: %v", err)
	}

	_, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "capture_image",
		Arguments: map[string]any{"camera_index": 7},
	})
	var wireErr *jsonrpc.Error
	if !errors.As(err, &wireErr) || wireErr.Code != protocol.CodeToolExecution {
		t.Fatalf("capture missing camera err = %v", err)
	}

	_, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "capture_image",
		Arguments: map[string]any{"camera_index": -1},
	})
	if !errors.As(err, &wireErr) || wireErr.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("capture negative index err = %v", err)
	}

	if err := session.Close(); err != nil {
		t.Logf("close session: %v", err)
	}
	if err := waitServe(t, done); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}

func TestClientSessionAgainstRemoteTools(t *testing.T) {
	jpegBytes := encodeTestJPEG(t)
	camera := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegBytes)
	}))
	defer camera.Close()

	shodanAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"matches":[{"ip_str":"203.0.113.5","port":8080,"product":"webcamXP"}],"total":1}`)
	}))
	defer shodanAPI.Close()

	srv := newServer(t, Config{ShodanAPIKey: "secret", ShodanBaseURL: shodanAPI.URL})
	if n := srv.Registry().Len(); n != 6 {
		t.Fatalf("registry has %d tools, want 6", n)
	}
	session, done := connect(t, srv)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "search_webcams", Arguments: map[string]any{"limit": 3}})
	if err != nil {
		t.Fatalf("search_webcams: %v", err)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || text.Text != "Found 1 remote webcam(s) via Shodan search" {
		t.Fatalf("search content = %#v", res.Content)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "capture_remote_image",
		Arguments: map[string]any{"url": camera.URL + "/snapshot.jpg"},
	})
	if err != nil {
		t.Fatalf("capture_remote_image: %v", err)
	}
	img, ok := res.Content[0].(*mcp.ImageContent)
	if !ok || !bytes.Equal(img.Data, jpegBytes) {
		t.Fatalf("remote capture content = %#v", res.Content)
	}

	_ = session.Close()
	if err := waitServe(t, done); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}

func TestServeRecordsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")
	srv := newServer(t, Config{SyntheticCameras: 1, JournalPath: path})

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"capture_image","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"capture_image","arguments":{"camera_index":3}}}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Fatalf("responses = %d, want 2:\n%s", got, out.String())
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	defer store.Close()
	calls, err := store.ListCalls(context.Background(), 10)
	if err != nil {
		t.Fatalf("list calls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	outcomes := map[string]int{}
	for _, c := range calls {
		if c.Tool != "capture_image" {
			t.Fatalf("tool = %q", c.Tool)
		}
		outcomes[c.Outcome]++
	}
	if outcomes[storage.OutcomeOK] != 1 || outcomes[storage.OutcomeError] != 1 {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

func TestServeFramingFailure(t *testing.T) {
	srv := newServer(t, Config{MaxMessageBytes: 64})
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" + strings.Repeat("x", 100) + "\n"
	var out bytes.Buffer
	err := srv.Serve(context.Background(), strings.NewReader(input), &out)
	if !errors.Is(err, transport.ErrFraming) {
		t.Fatalf("err = %v, want ErrFraming", err)
	}
	if !strings.Contains(out.String(), `"id":1`) {
		t.Fatalf("ping before the bad line was not answered: %q", out.String())
	}
}

type brokenInput struct{}

func (brokenInput) Read([]byte) (int, error) { return 0, errors.New("stdin closed badly") }

func TestServeUnreadableInputIsTransportFailure(t *testing.T) {
	srv := newServer(t, Config{})
	var out bytes.Buffer
	err := srv.Serve(context.Background(), brokenInput{}, &out)
	if !errors.Is(err, transport.ErrFraming) {
		t.Fatalf("err = %v, want ErrFraming", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestNewServerRejectsUnopenableJournal(t *testing.T) {
	dir := t.TempDir()
	_, err := NewServer(context.Background(), Config{JournalPath: filepath.Join(dir, "missing", "calls.db")})
	if err == nil {
		t.Fatal("expected error for journal in a missing directory")
	}
}
