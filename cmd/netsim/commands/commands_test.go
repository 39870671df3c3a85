package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/config"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if out != "netsim "+Version+"\n" {
		t.Fatalf("version output = %q", out)
	}
}

func TestConfigCommandPrintsExample(t *testing.T) {
	out, _, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	if out != config.ExampleYAML() {
		t.Fatalf("config output differs from example")
	}
}

func TestConfigCommandEffectiveAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsim.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  nodes: 12\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configEnv, path)
	t.Setenv("LOG_LEVEL", "warn")

	out, _, err := execute(t, "config", "--effective")
	if err != nil {
		t.Fatalf("config --effective error: %v", err)
	}
	if !strings.Contains(out, "nodes: 12") || !strings.Contains(out, "level: warn") {
		t.Fatalf("effective config missing overrides:\n%s", out)
	}
}

func TestRunCommandStopsAtMaxTicks(t *testing.T) {
	_, stderr, err := execute(t, "run",
		"--accelerated",
		"--max-ticks", "25",
		"--nodes", "8",
		"--seed", "5",
	)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(stderr, "run finished") || !strings.Contains(stderr, "ticks=25") {
		t.Fatalf("missing run summary in log output:\n%s", stderr)
	}
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsim.yaml")
	if err := os.WriteFile(path, []byte("transfer:\n  window_size: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := execute(t, "run", "--config", path, "--accelerated", "--max-ticks", "1"); err == nil {
		t.Fatalf("run accepted an invalid window size")
	}
}

func TestRunWithLayoutFile(t *testing.T) {
	dir := t.TempDir()
	layout := filepath.Join(dir, "layout.json")
	body := `{"routers": [{"id": 0, "x": 0, "y": 0}, {"id": 1, "x": 0.2, "y": 0}, {"id": 2, "x": 0.4, "y": 0}]}`
	if err := os.WriteFile(layout, []byte(body), 0o644); err != nil {
		t.Fatalf("write layout: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Simulation.Nodes = 3
	cfg.Simulation.LayoutFile = layout
	cfg.Simulation.FailureProbability = 0
	cfg.Transfer.MessageCount = 32
	cfg.Runtime.Mode = "accelerated"
	cfg.Runtime.MaxTicks = 100
	cfg.Runtime.StopOnComplete = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var logs bytes.Buffer
	if err := run(context.Background(), cfg, &logs); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(logs.String(), "status=complete") {
		t.Fatalf("transfer over a fixed line did not complete:\n%s", logs.String())
	}

	cfg.Simulation.Nodes = 4
	if err := run(context.Background(), cfg, &logs); err == nil {
		t.Fatalf("run accepted a layout with the wrong router count")
	}
}

func TestRunWithServers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simulation.Nodes = 10
	cfg.Simulation.Seed = 9
	cfg.Runtime.Mode = "accelerated"
	cfg.Runtime.MaxTicks = 40
	cfg.Metrics.Enabled, cfg.Metrics.Listen = true, "127.0.0.1:0"
	cfg.Render.WebSocket, cfg.Render.Listen = true, "127.0.0.1:0"
	cfg.Status.Enabled, cfg.Status.Listen = true, "127.0.0.1:0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var logs bytes.Buffer
	if err := run(context.Background(), cfg, &logs); err != nil {
		t.Fatalf("run error: %v\n%s", err, logs.String())
	}
	for _, want := range []string{"serving metrics", "serving websocket", "serving gRPC health", "run finished"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("log output missing %q:\n%s", want, logs.String())
		}
	}
}
