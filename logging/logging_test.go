package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatPretty, "debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With("run", "r1").WithGroup("episode").Info("done", "reward", 1.5, "steps", 12)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if got["msg"] != "done" || got["level"] != "INFO" || got["run"] != "r1" {
		t.Fatalf("payload=%v", got)
	}
	ep, ok := got["episode"].(map[string]any)
	if !ok || ep["reward"] != 1.5 || ep["steps"] != float64(12) {
		t.Fatalf("episode group=%v", got["episode"])
	}
}

func TestPrettyHandler_FiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, FormatPretty, "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not logged: %q", buf.String())
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := New(&bytes.Buffer{}, FormatJSON, "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
