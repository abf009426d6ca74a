// Package transport frames newline-delimited JSON-RPC messages on a byte
// stream.
//
// The framer knows nothing about JSON: it yields one complete line per read
// and writes one complete line per message. Framing failures are fatal for
// the stream and wrap ErrFraming so the caller can end the session with a
// distinct exit status.
package transport
