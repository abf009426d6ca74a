package config

import (
	"fmt"
	"os"
)

// Process exit codes shared by command entry points.
const (
	// ExitOK reports a clean shutdown (stream closed or signal received).
	ExitOK = 0
	// ExitStartup reports a configuration or startup failure.
	ExitStartup = 1
	// ExitTransport reports that the protocol stream became unreadable.
	ExitTransport = 2
)

// Exitf writes a formatted error message to stderr and exits with code.
func Exitf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
