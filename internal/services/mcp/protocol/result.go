package protocol

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolResult is the successful outcome of a tool call. Content order is
// preserved on the wire.
type ToolResult struct {
	Content  []mcp.Content
	Metadata map[string]any
}

// NewResult builds a result from content items.
func NewResult(content ...mcp.Content) *ToolResult {
	return &ToolResult{Content: content}
}

// Text builds a text content item.
func Text(text string) *mcp.TextContent {
	return &mcp.TextContent{Text: text}
}

// Image builds an image content item from raw bytes.
func Image(data []byte, mimeType string) *mcp.ImageContent {
	return &mcp.ImageContent{Data: data, MIMEType: mimeType}
}

// WithMetadata sets the result metadata and returns r.
func (r *ToolResult) WithMetadata(metadata map[string]any) *ToolResult {
	r.Metadata = metadata
	return r
}

func (r ToolResult) MarshalJSON() ([]byte, error) {
	content := r.Content
	if content == nil {
		content = []mcp.Content{}
	}
	return json.Marshal(struct {
		Content  []mcp.Content  `json:"content"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{Content: content, Metadata: r.Metadata})
}
