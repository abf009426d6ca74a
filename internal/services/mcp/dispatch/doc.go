// Package dispatch runs the request loop of the MCP server.
//
// One goroutine reads framed lines. Each line is decoded, routed and either
// answered directly (initialize, tools/list, ping, protocol errors) or handed
// to the executor as a tool call that answers from its own goroutine.
// Responses can therefore leave out of order, but every request with an id is
// answered exactly once and notifications are never answered.
package dispatch
