// Package tui renders pipeline events in the terminal: a line-oriented
// Printer for plain runs and a bubbletea Live view for `run --tui`.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/codepair/internal/debate"
	"github.com/Iron-Ham/codepair/internal/event"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue
	PinkColor      = lipgloss.Color("#F472B6") // Pink
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	StageBadge = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor)

	SummaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor)
)

// StageColor returns the badge color for a stage.
func StageColor(s event.Stage) lipgloss.Color {
	switch s {
	case event.StageError:
		return ErrorColor
	case event.StageDone:
		return SecondaryColor
	case event.StageDebatingPlan:
		return PinkColor
	case event.StageReviewingTurn, event.StageInstallingDeps:
		return BlueColor
	case event.StageProcessingTurn:
		return WarningColor
	default:
		return PrimaryColor
	}
}

// WorkerStyle returns the text style for output streamed by w.
func WorkerStyle(w event.Worker) lipgloss.Style {
	switch w {
	case event.WorkerCoder:
		return Secondary
	case event.WorkerReviewer:
		return lipgloss.NewStyle().Foreground(BlueColor)
	case event.WorkerRefiner:
		return Primary
	default:
		return Muted
	}
}

// AgentStyle returns the text style for a debate agent.
func AgentStyle(agent string) lipgloss.Style {
	switch agent {
	case debate.NameDebaterA:
		return Secondary
	case debate.NameDebaterB:
		return lipgloss.NewStyle().Foreground(BlueColor)
	default:
		return lipgloss.NewStyle().Foreground(PinkColor)
	}
}
