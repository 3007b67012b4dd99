package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/codepair/internal/event"
)

// plain strips styling so assertions don't depend on the color profile.
func plain(s string) string {
	return ansi.Strip(s)
}

func TestPrinter_Events(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want []string
	}{
		{
			name: "start",
			ev:   event.NewPipelineStart("build a todo app", 3),
			want: []string{"codepair · 3 turn(s)", "build a todo app"},
		},
		{
			name: "stage change",
			ev:   event.NewStageChange(event.StageCodingTurn, "Turn 1: coding"),
			want: []string{"▸ coding_turn", "Turn 1: coding"},
		},
		{
			name: "status with worker",
			ev:   event.NewStatusUpdate("Reviewing", event.WorkerReviewer),
			want: []string{"w2", "Reviewing"},
		},
		{
			name: "file update",
			ev:   event.NewFileUpdate("src/App.tsx", "a\nb\nc"),
			want: []string{"~ src/App.tsx", "(3 lines)"},
		},
		{
			name: "folder create",
			ev:   event.NewFolderCreate("src/components"),
			want: []string{"+ src/components/"},
		},
		{
			name: "install command",
			ev:   event.NewInstallCommand("npm install zod"),
			want: []string{"$ npm install zod"},
		},
		{
			name: "no install actions",
			ev:   event.NewInstallNoActionsNeeded(),
			want: []string{"no new dependencies"},
		},
		{
			name: "error",
			ev:   event.NewPipelineError("Refine failed"),
			want: []string{"✗ Refine failed"},
		},
		{
			name: "interrupted",
			ev:   event.NewPipelineInterrupted("Interrupted"),
			want: []string{"■ Interrupted"},
		},
		{
			name: "finish",
			ev:   event.NewPipelineFinish(map[string]string{"src/App.tsx": "x"}, []string{"npm install zod"}),
			want: []string{"1 file(s), 1 install command(s)", "$ npm install zod"},
		},
		{
			name: "debate summary",
			ev:   event.NewDebateResultSummary("Use local state.", "Step 1", []string{"A", "B"}, true, nil),
			want: []string{"Debate summary", "Use local state.", "Agreed plan", "Step 1", "Options", "• A", "• B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf, 80, false).Handle(tt.ev)
			out := plain(buf.String())
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestPrinter_Chunks(t *testing.T) {
	t.Run("quiet mode hides chunks", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, 80, false)
		p.Handle(event.NewAssistantChunk(event.WorkerCoder, "partial"))
		p.Handle(event.NewAssistantDone(event.WorkerCoder))

		out := plain(buf.String())
		if strings.Contains(out, "partial") {
			t.Errorf("chunk printed in quiet mode: %q", out)
		}
		if !strings.Contains(out, "w1 finished") {
			t.Errorf("missing completion line: %q", out)
		}
	})

	t.Run("verbose mode streams on one line per source", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, 80, true)
		p.Handle(event.NewAssistantChunk(event.WorkerCoder, "hel"))
		p.Handle(event.NewAssistantChunk(event.WorkerCoder, "lo"))
		p.Handle(event.NewDebateAgentChunk("debater_a", "I propose"))
		p.Handle(event.NewAssistantDone(event.WorkerCoder))

		lines := strings.Split(strings.TrimRight(plain(buf.String()), "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
		}
		if lines[0] != "w1› hello" {
			t.Errorf("line 0 = %q", lines[0])
		}
		if lines[1] != "debater_a› I propose" {
			t.Errorf("line 1 = %q", lines[1])
		}
	})
}

func TestPrinter_Truncates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, 30, false)
	p.Handle(event.NewStatusUpdate(strings.Repeat("x", 100), event.WorkerNone))

	line := strings.TrimRight(plain(buf.String()), "\n")
	if len([]rune(line)) > 30 {
		t.Errorf("line not truncated to width: %d runes", len([]rune(line)))
	}
	if !strings.HasSuffix(line, "...") {
		t.Errorf("truncated line should end with ellipsis: %q", line)
	}
}

func TestPrinter_WrapsRefinedPrompt(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, 30, false)
	p.Handle(event.NewPromptRefined(strings.Repeat("word ", 20)))

	for _, line := range strings.Split(strings.TrimRight(plain(buf.String()), "\n"), "\n")[1:] {
		if len(line) > 30 {
			t.Errorf("wrapped line too long (%d): %q", len(line), line)
		}
	}
}
