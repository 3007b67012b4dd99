package tui

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/codepair/internal/event"
)

// eventMsg delivers one pipeline event to the model.
type eventMsg struct{ ev event.Event }

// streamEndMsg is sent once the event sequence is exhausted.
type streamEndMsg struct{}

// Live is the bubbletea model behind `run --tui`: a header with the current
// stage, a scrolling log rendered by a Printer, and a help bar.
type Live struct {
	spinner  spinner.Model
	viewport viewport.Model
	log      *strings.Builder
	printer  *Printer

	cancel context.CancelFunc

	stage    event.Stage
	turn     int
	maxTurns int
	status   string

	ready    bool
	follow   bool
	finished bool
	quitting bool
	outcome  string
}

// NewLive creates the model. cancel stops the underlying run when the user
// quits early.
func NewLive(cancel context.CancelFunc) *Live {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = Primary

	log := &strings.Builder{}
	return &Live{
		spinner:  s,
		viewport: viewport.New(0, 0),
		log:      log,
		printer:  NewPrinter(log, DefaultWidth, true),
		cancel:   cancel,
		stage:    event.StageInitial,
		follow:   true,
	}
}

// Init implements tea.Model.
func (m *Live) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 1)
		m.printer.SetWidth(msg.Width)
		m.ready = true
		m.refresh()
		return m, nil

	case eventMsg:
		m.apply(msg.ev)
		m.printer.Handle(msg.ev)
		m.refresh()
		return m, nil

	case streamEndMsg:
		m.finished = true
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Live) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		if m.finished {
			return m, tea.Quit
		}
		// Wait for the interrupted run to emit its final events.
		if !m.quitting {
			m.quitting = true
			m.status = "Interrupting…"
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case "f":
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if !m.viewport.AtBottom() {
		m.follow = false
	}
	return m, cmd
}

// apply updates header state from an event.
func (m *Live) apply(ev event.Event) {
	switch e := ev.(type) {
	case event.PipelineStart:
		m.maxTurns = e.MaxTurns
	case event.StageChange:
		m.stage = e.NewStage
		if e.NewStage == event.StageCodingTurn {
			m.turn++
		}
		if e.Message != "" {
			m.status = e.Message
		}
	case event.StatusUpdate:
		m.status = e.Message
	case event.PipelineInterrupted:
		m.outcome = "interrupted"
	case event.PipelineFinish:
		switch {
		case m.outcome != "":
		case m.stage == event.StageError:
			m.outcome = "error"
		default:
			m.outcome = "done"
		}
	}
}

func (m *Live) refresh() {
	m.viewport.SetContent(m.log.String())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// chromeHeight is the number of lines used by the header and help bar.
func (m *Live) chromeHeight() int {
	return lipgloss.Height(m.header()) + lipgloss.Height(m.help())
}

func (m *Live) header() string {
	indicator := m.spinner.View()
	if m.finished {
		indicator = "●"
	}
	badge := StageBadge.Foreground(StageColor(m.stage)).Render(string(m.stage))
	turn := ""
	if m.maxTurns > 0 {
		turn = Muted.Render(fmt.Sprintf("turn %d/%d", min(m.turn, m.maxTurns), m.maxTurns))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Left, Title.Render("codepair "), indicator, " ", badge, " ", turn)
	status := Muted.Render(m.status)
	return Header.Render(line + "\n" + status)
}

func (m *Live) help() string {
	follow := "off"
	if m.follow {
		follow = "on"
	}
	if m.finished {
		return HelpBar.Render(fmt.Sprintf("%s · ↑/↓ scroll · f follow (%s) · q quit", m.outcome, follow))
	}
	return HelpBar.Render(fmt.Sprintf("↑/↓ scroll · f follow (%s) · q interrupt", follow))
}

// View implements tea.Model.
func (m *Live) View() string {
	if !m.ready {
		return "Starting…"
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.help()
}

// Outcome reports how the run ended: "done", "error", "interrupted", or ""
// if no terminal event was seen.
func (m *Live) Outcome() string {
	return m.outcome
}

// RunLive shows the live view while consuming events, returning when the
// user quits after the stream ends and the sequence is drained. Quitting
// early calls cancel and waits for the run to wind down.
func RunLive(events iter.Seq[event.Event], cancel context.CancelFunc, opts ...tea.ProgramOption) (*Live, error) {
	model := NewLive(cancel)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			program.Send(eventMsg{ev})
		}
		program.Send(streamEndMsg{})
	}()

	_, err := program.Run()
	if err != nil && cancel != nil {
		cancel()
	}
	// Sinks fed by events must see the run's last event before returning.
	<-drained
	if err != nil {
		return model, fmt.Errorf("live view: %w", err)
	}
	return model, nil
}
