package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeLogLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestReadEntries(t *testing.T) {
	dir := t.TempDir()
	writeLogLines(t, filepath.Join(dir, LogFileName+".1"),
		`{"time":"2026-01-01T10:00:00Z","level":"INFO","msg":"pipeline started","run_id":"r1"}`,
	)
	writeLogLines(t, filepath.Join(dir, LogFileName),
		`{"time":"2026-01-01T10:00:02Z","level":"WARN","msg":"no fenced code block","run_id":"r1","stage":"coding_turn","worker":"w1","filename":"src/App.tsx"}`,
		`not json`,
		`{"time":"2026-01-01T10:00:01Z","level":"DEBUG","msg":"stage started","run_id":"r2","stage":"refining_prompt"}`,
	)

	entries, err := ReadEntries(dir)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantOrder := []string{"pipeline started", "stage started", "no fenced code block"}
	for i, msg := range wantOrder {
		if entries[i].Message != msg {
			t.Errorf("entries[%d].Message = %q, want %q", i, entries[i].Message, msg)
		}
	}

	last := entries[2]
	if last.Stage != "coding_turn" || last.Worker != "w1" || last.RunID != "r1" {
		t.Errorf("context fields not parsed: %+v", last)
	}
	if last.Attrs["filename"] != "src/App.tsx" {
		t.Errorf("expected filename attr, got %v", last.Attrs)
	}
}

func TestReadEntries_MissingDir(t *testing.T) {
	if _, err := ReadEntries(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for directory without log files")
	}
}

func TestFilterEntries(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	entries := []LogEntry{
		{Timestamp: base, Level: LevelDebug, Message: "a", RunID: "r1", Stage: "refining_prompt"},
		{Timestamp: base.Add(time.Second), Level: LevelWarn, Message: "scaffold item rejected", RunID: "r1", Stage: "scaffolding"},
		{Timestamp: base.Add(2 * time.Second), Level: LevelError, Message: "b", RunID: "r2", Stage: "coding_turn", Worker: "w1"},
	}

	tests := []struct {
		name   string
		filter LogFilter
		want   int
	}{
		{name: "empty filter", filter: LogFilter{}, want: 3},
		{name: "min level warn", filter: LogFilter{Level: "warn"}, want: 2},
		{name: "run", filter: LogFilter{RunID: "r1"}, want: 2},
		{name: "run prefix", filter: LogFilter{RunID: "r"}, want: 3},
		{name: "stage", filter: LogFilter{Stage: "coding_turn"}, want: 1},
		{name: "worker", filter: LogFilter{Worker: "w2"}, want: 0},
		{name: "since", filter: LogFilter{Since: base.Add(time.Second)}, want: 2},
		{name: "message", filter: LogFilter{MessageContains: "rejected"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(FilterEntries(entries, tt.filter)); got != tt.want {
				t.Errorf("FilterEntries() returned %d entries, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteEntries(t *testing.T) {
	entries := []LogEntry{{
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Level:     LevelInfo,
		Message:   "turn advanced",
		RunID:     "0123456789abcdef",
		Stage:     "reviewing_turn",
		Attrs:     map[string]any{"turn": 1},
	}}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEntries(&buf, entries, "text"); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"run=01234567", "stage=reviewing_turn", "turn advanced", "turn=1"} {
			if !strings.Contains(out, want) {
				t.Errorf("output %q missing %q", out, want)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEntries(&buf, entries, "json"); err != nil {
			t.Fatalf("WriteEntries failed: %v", err)
		}
		var decoded []LogEntry
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(decoded) != 1 || decoded[0].Message != "turn advanced" {
			t.Errorf("unexpected decoded entries: %+v", decoded)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if err := WriteEntries(&bytes.Buffer{}, entries, "csv"); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
