package domain

import (
	"context"
	"testing"

	"github.com/DynamicDevices/mcp-webcam/internal/remote/shodan"
	"github.com/DynamicDevices/mcp-webcam/internal/remote/snapshot"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeSearcher struct {
	webcams  []shodan.Webcam
	err      error
	gotLimit int
}

func (f *fakeSearcher) SearchWebcams(_ context.Context, limit int) ([]shodan.Webcam, error) {
	f.gotLimit = limit
	return f.webcams, f.err
}

type fakeFetcher struct {
	img    *snapshot.Image
	err    error
	gotURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*snapshot.Image, error) {
	f.gotURL = url
	return f.img, f.err
}

func textAt(t *testing.T, res *protocol.ToolResult, i int) string {
	t.Helper()
	if i >= len(res.Content) {
		t.Fatalf("content has %d items, want index %d", len(res.Content), i)
	}
	text, ok := res.Content[i].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[%d] = %T, want *mcp.TextContent", i, res.Content[i])
	}
	return text.Text
}

func imageAt(t *testing.T, res *protocol.ToolResult, i int) *mcp.ImageContent {
	t.Helper()
	if i >= len(res.Content) {
		t.Fatalf("content has %d items, want index %d", len(res.Content), i)
	}
	img, ok := res.Content[i].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("content[%d] = %T, want *mcp.ImageContent", i, res.Content[i])
	}
	return img
}
