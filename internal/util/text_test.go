package util

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestClip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{name: "short", input: "build a todo app", maxRunes: 80, want: "build a todo app"},
		{name: "exact", input: "abcdef", maxRunes: 6, want: "abcdef"},
		{name: "cut", input: "build a todo app", maxRunes: 10, want: "build a..."},
		{name: "runes not bytes", input: "日本語のプロンプト", maxRunes: 6, want: "日本語..."},
		{name: "tiny limit", input: "anything", maxRunes: 2, want: "..."},
		{name: "empty", input: "", maxRunes: 10, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clip(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("Clip(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestClipANSI(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("coding_turn") + " Turn 1: Worker 1 is writing code"

	tests := []struct {
		name  string
		input string
		width int
	}{
		{name: "styled", input: styled, width: 20},
		{name: "plain", input: strings.Repeat("x", 50), width: 10},
		{name: "wide characters", input: "日本語日本語日本語", width: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipANSI(tt.input, tt.width)
			if w := lipgloss.Width(got); w > tt.width {
				t.Errorf("ClipANSI() width = %d, want <= %d (%q)", w, tt.width, got)
			}
			if !strings.HasSuffix(got, ellipsis) {
				t.Errorf("ClipANSI() = %q, want ellipsis suffix", got)
			}
		})
	}

	t.Run("fits unchanged", func(t *testing.T) {
		if got := ClipANSI(styled, 200); got != styled {
			t.Errorf("ClipANSI() changed text that fits: %q", got)
		}
	})

	t.Run("tiny limit", func(t *testing.T) {
		if got := ClipANSI(styled, 3); got != ellipsis {
			t.Errorf("ClipANSI() = %q", got)
		}
	})
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"single", "single"},
		{"\n\n  Plan: use useReducer  \nStep 2", "Plan: use useReducer"},
		{"   \n\t\n", ""},
	}

	for _, tt := range tests {
		if got := FirstLine(tt.input); got != tt.want {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"a\nb\nc", 3},
		{"a\nb\nc\n", 3},
		{"\n", 1},
	}

	for _, tt := range tests {
		if got := LineCount(tt.input); got != tt.want {
			t.Errorf("LineCount(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
