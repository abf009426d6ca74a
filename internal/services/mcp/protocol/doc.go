// Package protocol holds the JSON-RPC response vocabulary of the MCP server:
// tool results, the error taxonomy, the mapping from Go errors to JSON-RPC
// error objects, and response serialization.
package protocol
