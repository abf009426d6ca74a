package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/schema"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Application error codes for failures inside tool execution.
const (
	CodeToolExecution = -32000
	CodeToolTimeout   = -32001
	CodeToolInternal  = -32002
)

var codeMessages = map[int64]string{
	jsonrpc.CodeParseError:     "parse error",
	jsonrpc.CodeInvalidRequest: "invalid request",
	jsonrpc.CodeMethodNotFound: "method not found",
	jsonrpc.CodeInvalidParams:  "invalid params",
	jsonrpc.CodeInternalError:  "internal error",
	CodeToolExecution:          "tool execution failed",
	CodeToolTimeout:            "tool timed out",
	CodeToolInternal:           "internal tool error",
}

// Message returns the fixed error message for code.
func Message(code int64) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "error"
}

// ErrorData is the structured data attached to every error object.
type ErrorData struct {
	Tool      string `json:"tool,omitempty"`
	Field     string `json:"field,omitempty"`
	Expected  string `json:"expected,omitempty"`
	Method    string `json:"method,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// RequestError is a failure detected before any tool runs.
type RequestError struct {
	Code     int64
	Method   string
	Tool     string
	Field    string
	Expected string
	Detail   string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return Message(e.Code) + ": " + e.Detail
	}
	return Message(e.Code)
}

// ParseError reports a line or params payload that is not usable JSON.
func ParseError(detail string) *RequestError {
	return &RequestError{Code: jsonrpc.CodeParseError, Detail: detail}
}

// InvalidRequest reports JSON that is not a JSON-RPC 2.0 request.
func InvalidRequest(detail string) *RequestError {
	return &RequestError{Code: jsonrpc.CodeInvalidRequest, Detail: detail}
}

// MethodNotFound reports an unsupported method.
func MethodNotFound(method string) *RequestError {
	return &RequestError{Code: jsonrpc.CodeMethodNotFound, Method: method}
}

// InvalidParams reports a bad tools/call payload.
func InvalidParams(tool, field, detail string) *RequestError {
	return &RequestError{Code: jsonrpc.CodeInvalidParams, Tool: tool, Field: field, Detail: detail}
}

// ToolErrorKind classifies failures raised while a tool runs.
type ToolErrorKind int

const (
	// KindExecution is a collaborator failure such as a missing device.
	KindExecution ToolErrorKind = iota + 1
	// KindTimeout is an async tool exceeding its deadline.
	KindTimeout
	// KindInternal is an unexpected fault, such as a panic, in the handler.
	KindInternal
)

func (k ToolErrorKind) String() string {
	switch k {
	case KindExecution:
		return "execution"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ToolError wraps a failure raised while executing a tool.
type ToolError struct {
	Kind ToolErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool %s: %s failure", e.Tool, e.Kind)
	}
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

type reasoner interface{ Reason() string }

type retryabler interface{ Retryable() bool }

// MapError converts err into the JSON-RPC error object sent to the client.
func MapError(err error) *jsonrpc.Error {
	var (
		reqErr  *RequestError
		toolErr *ToolError
		valErr  *schema.ValidationError
	)
	switch {
	case errors.As(err, &reqErr):
		return newError(reqErr.Code, ErrorData{
			Tool:     reqErr.Tool,
			Field:    reqErr.Field,
			Expected: reqErr.Expected,
			Method:   reqErr.Method,
			Detail:   reqErr.Detail,
		})
	case errors.As(err, &valErr):
		return newError(jsonrpc.CodeInvalidParams, ErrorData{
			Field:    valErr.Field,
			Expected: valErr.Expected,
			Detail:   valErr.Error(),
		})
	case errors.As(err, &toolErr):
		return mapToolError(toolErr)
	default:
		return newError(jsonrpc.CodeInternalError, ErrorData{})
	}
}

func mapToolError(e *ToolError) *jsonrpc.Error {
	data := ErrorData{Tool: e.Tool}
	switch e.Kind {
	case KindTimeout:
		data.Detail = "deadline exceeded"
		data.Retryable = true
		return newError(CodeToolTimeout, data)
	case KindInternal:
		data.Detail = "unexpected failure in tool handler"
		return newError(CodeToolInternal, data)
	}
	if e.Err != nil {
		data.Detail = e.Err.Error()
		var r reasoner
		if errors.As(e.Err, &r) {
			data.Reason = r.Reason()
		}
		var rt retryabler
		if errors.As(e.Err, &rt) {
			data.Retryable = rt.Retryable()
		}
	}
	return newError(CodeToolExecution, data)
}

// WithTool returns err tagged with the tool name when it carries parameter data.
func WithTool(err error, tool string) error {
	var valErr *schema.ValidationError
	if errors.As(err, &valErr) {
		return &RequestError{
			Code:     jsonrpc.CodeInvalidParams,
			Tool:     tool,
			Field:    valErr.Field,
			Expected: valErr.Expected,
			Detail:   valErr.Error(),
		}
	}
	return err
}

func newError(code int64, data ErrorData) *jsonrpc.Error {
	out := &jsonrpc.Error{Code: code, Message: Message(code)}
	if data != (ErrorData{}) {
		if raw, err := json.Marshal(data); err == nil {
			out.Data = raw
		}
	}
	return out
}
