package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildJSON(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "log.json")
	l, err := Build(Options{JSON: true, OutputPaths: []string{out}, Fields: []zap.Field{zap.String("app", "inbox-ranker")}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	l.Named("bulk").Info("chunk committed", zap.Int64(FieldPairing, 7))
	l.Debug("hidden")
	_ = l.Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 entry at info level, got %d: %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}

	want := map[string]any{
		"step":       "chunk committed",
		"level":      "info",
		"component":  "bulk",
		"app":        "inbox-ranker",
		FieldPairing: float64(7),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("field %q = %v, want %v", k, entry[k], v)
		}
	}
}

func TestBuildDebugLevel(t *testing.T) {
	t.Parallel()

	l, err := New(false, true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug level should be enabled")
	}
}
