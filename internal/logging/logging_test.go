package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)

	log.With(Int("tick", 7)).Info(context.Background(), "route changed",
		Float("progress", 0.5),
		Bool("path", true),
		Err(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "route changed" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry["tick"] != float64(7) || entry["progress"] != 0.5 || entry["path"] != true || entry["error"] != "boom" {
		t.Fatalf("unexpected fields: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn"}, &buf)

	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestRunIDHelpers(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" || RunIDFromContext(ctx) != id {
		t.Fatalf("run id not stored: %q", id)
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatalf("EnsureRunID replaced an existing id")
	}

	var buf bytes.Buffer
	_, log := WithRunLogger(ctx, NewWithWriter(Config{Format: "json"}, &buf))
	log.Info(ctx, "hello")
	if !strings.Contains(buf.String(), id) {
		t.Fatalf("run id missing from %q", buf.String())
	}
}

func TestTickFromContextIsLogged(t *testing.T) {
	if _, ok := TickFromContext(context.Background()); ok {
		t.Fatalf("tick reported on a bare context")
	}

	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json"}, &buf)
	ctx := ContextWithTick(context.Background(), 42)
	if tick, ok := TickFromContext(ctx); !ok || tick != 42 {
		t.Fatalf("TickFromContext = %d, %v, want 42, true", tick, ok)
	}

	log.Info(ctx, "router failed", Int("router", 7))
	if !strings.Contains(buf.String(), `"tick":42`) || !strings.Contains(buf.String(), `"router":7`) {
		t.Fatalf("tick or field missing from %q", buf.String())
	}

	buf.Reset()
	log.Info(context.Background(), "no tick")
	if strings.Contains(buf.String(), `"tick"`) {
		t.Fatalf("tick logged without one on the context: %q", buf.String())
	}
}

func TestFromContextFallsBackToNoop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext returned nil")
	}
	l := Noop()
	if got := FromContext(ContextWithLogger(context.Background(), l)); got != l {
		t.Fatalf("FromContext did not return stored logger")
	}
}
