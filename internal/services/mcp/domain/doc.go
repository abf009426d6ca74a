// Package domain implements the webcam tools offered over MCP.
//
// Each tool is a descriptor plus a handler bound to its collaborators:
// local camera tools drive the camera manager and run on the blocking pool,
// while remote tools call Shodan or a remote camera and run under a deadline.
// Handlers return plain errors; the executor classifies them.
package domain
