// Package util holds small text helpers shared by the console printer and
// the server's request logging.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// Clip shortens s to at most maxRunes runes, ending in "..." when cut.
// It ignores ANSI sequences; use ClipANSI for styled text.
func Clip(s string, maxRunes int) string {
	if maxRunes <= len(ellipsis) {
		return ellipsis
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-len(ellipsis)]) + ellipsis
}

// ClipANSI shortens styled text to maxWidth terminal columns. Escape
// sequences are preserved and wide characters count as two columns.
func ClipANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for line := range strings.Lines(s) {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// LineCount returns the number of lines in file content. A trailing newline
// does not start a new line.
func LineCount(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
