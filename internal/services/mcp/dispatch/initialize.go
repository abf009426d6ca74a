package dispatch

import (
	"encoding/json"
	"slices"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/protocol"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LatestProtocolVersion is offered when the client asks for an unknown version.
const LatestProtocolVersion = "2025-06-18"

var supportedProtocolVersions = []string{
	LatestProtocolVersion,
	"2025-03-26",
	"2024-11-05",
}

type initializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	ClientInfo      *mcp.Implementation `json:"clientInfo"`
}

// initializeResult carries the tool list alongside the handshake fields so
// clients can skip a separate tools/list round trip.
type initializeResult struct {
	ProtocolVersion string                  `json:"protocolVersion"`
	Capabilities    *mcp.ServerCapabilities `json:"capabilities"`
	ServerInfo      *mcp.Implementation     `json:"serverInfo"`
	Instructions    string                  `json:"instructions,omitempty"`
	Tools           []*mcp.Tool             `json:"tools"`
}

// NegotiateProtocolVersion echoes a supported client version or falls back
// to the latest one.
func NegotiateProtocolVersion(requested string) string {
	if slices.Contains(supportedProtocolVersions, requested) {
		return requested
	}
	return LatestProtocolVersion
}

func (d *Dispatcher) initialize(raw json.RawMessage) (*initializeResult, error) {
	var params initializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, protocol.InvalidParams("", "params", err.Error())
		}
	}
	version := NegotiateProtocolVersion(params.ProtocolVersion)
	attrs := []any{"protocol_version", version}
	if params.ClientInfo != nil {
		attrs = append(attrs, "client", params.ClientInfo.Name, "client_version", params.ClientInfo.Version)
	}
	d.logger.Info("initialize", attrs...)

	return &initializeResult{
		ProtocolVersion: version,
		Capabilities:    &mcp.ServerCapabilities{Tools: &mcp.ToolCapabilities{}},
		ServerInfo:      d.serverInfo,
		Instructions:    d.instructions,
		Tools:           d.registry.Tools(),
	}, nil
}
