package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/config"
)

// TestExitfExitsWithTransportCode runs Exitf in a subprocess because os.Exit
// cannot be intercepted in-process.
func TestExitfExitsWithTransportCode(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		config.Exitf(config.ExitTransport, "stream failed: %s", "truncated line")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfExitsWithTransportCode$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != config.ExitTransport {
		t.Fatalf("expected exit code %d, got %d", config.ExitTransport, exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "stream failed: truncated line") {
		t.Fatalf("expected stderr to contain %q, got %q", "stream failed: truncated line", string(out))
	}
}
