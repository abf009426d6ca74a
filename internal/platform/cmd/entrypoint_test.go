package cmd

import (
	"context"
	"errors"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/otel"
)

type testConfig struct {
	Journal string        `env:"CMD_TEST_JOURNAL" envDefault:"calls.db"`
	Timeout time.Duration `env:"CMD_TEST_TIMEOUT" envDefault:"15s"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_JOURNAL", "env.db")
	t.Setenv("CMD_TEST_TIMEOUT", "2s")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfgRef := testConfig{}
	if err := ParseConfig(&cfgRef); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfgRef.Journal, "journal", cfgRef.Journal, "journal")
	fs.DurationVar(&cfgRef.Timeout, "timeout", cfgRef.Timeout, "timeout")

	if err := ParseArgs(fs, []string{"-journal", "flag.db"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfgRef.Journal != "flag.db" {
		t.Fatalf("expected flag value for journal, got %q", cfgRef.Journal)
	}
	if cfgRef.Timeout != 2*time.Second {
		t.Fatalf("expected env timeout, got %s", cfgRef.Timeout)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestParseArgsAcceptsNilArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := ParseArgs(fs, nil); err != nil {
		t.Fatalf("parse nil args: %v", err)
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	ctx := context.Background()
	if err := RunWithTelemetry(ctx, "", RunOptions{}, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(ctx, ServiceMCPWebcam, RunOptions{}, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	err := RunWithTelemetry(context.Background(), ServiceMCPWebcam, RunOptions{
		Telemetry: otel.Options{Disabled: true},
	}, func(context.Context) error {
		called = true
		return boom
	})
	if !called {
		t.Fatal("run was not called")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
