package protocol

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

const wireVersion = "2.0"

// envelope always carries an id; it is null for replies to unreadable lines.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc.Error  `json:"error,omitempty"`
}

// fallbackLine is used only if an error envelope itself cannot be encoded.
const fallbackLine = `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`

// EncodeResult serializes a success response for id. If v cannot be
// marshaled, an internal error response for the same id is returned instead.
func EncodeResult(id jsonrpc.ID, v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return EncodeError(id, newError(jsonrpc.CodeInternalError, ErrorData{Detail: "result could not be serialized"}))
	}
	line, err := json.Marshal(envelope{JSONRPC: wireVersion, ID: id.Raw(), Result: raw})
	if err != nil {
		return EncodeError(id, newError(jsonrpc.CodeInternalError, ErrorData{Detail: "response could not be serialized"}))
	}
	return line
}

// EncodeError serializes an error response for id.
func EncodeError(id jsonrpc.ID, e *jsonrpc.Error) []byte {
	if e == nil {
		e = newError(jsonrpc.CodeInternalError, ErrorData{})
	}
	line, err := json.Marshal(envelope{JSONRPC: wireVersion, ID: id.Raw(), Error: e})
	if err != nil {
		return []byte(fallbackLine)
	}
	return line
}
