package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/fedq/internal/errs"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info logger emitted a debug message")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info logger dropped an info message")
	}
}

func TestReporter_LogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	report := Reporter(logger)
	report(errs.KindDimensionMismatch, "state s has inconsistent action counts")

	out := buf.String()
	if !strings.Contains(out, "dimension_mismatch") {
		t.Errorf("warning missing kind attribute: %q", out)
	}
	if !strings.Contains(out, "WARN") {
		t.Errorf("expected WARN level, got %q", out)
	}
}

func TestNewRoundLogger_InfoLevelReturnsNil(t *testing.T) {
	rl := NewRoundLogger(t.TempDir(), "info")
	if rl != nil {
		t.Error("info level should not create a round logger")
	}

	// nil receiver is safe
	rl.Log(map[string]any{"round": 1})
	rl.Close()
}

func TestRoundLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	rl := NewRoundLogger(dir, "debug")
	if rl == nil {
		t.Fatal("debug level should create a round logger")
	}
	defer rl.Close()

	rl.Log(map[string]any{"round": 1, "avg_delta": 0.5})
	rl.Log(map[string]any{"round": 2, "avg_delta": 0.1})

	data, err := os.ReadFile(filepath.Join(dir, "rounds.jsonl"))
	if err != nil {
		t.Fatalf("reading rounds.jsonl: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if entry["round"] != float64(1) {
		t.Errorf("round = %v, want 1", entry["round"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry missing automatic time field")
	}
}

func TestRoundLogger_DoesNotMutateCallerMap(t *testing.T) {
	rl := NewRoundLogger(t.TempDir(), "debug")
	defer rl.Close()

	event := map[string]any{"round": 1}
	rl.Log(event)

	if _, ok := event["time"]; ok {
		t.Error("Log mutated the caller's map")
	}
}
