package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/util"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

// TerminalWidth returns the column count of f, or DefaultWidth when f is
// not a terminal.
func TerminalWidth(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return DefaultWidth
}

// Printer writes a human-readable log of pipeline events. It is a bus
// Handler and must only be fed from one goroutine.
type Printer struct {
	w       io.Writer
	width   int
	verbose bool

	// stream is the source of the chunk line currently open, "" when none.
	stream string
}

// NewPrinter creates a Printer. In verbose mode streamed chunks are echoed
// as they arrive; otherwise only completed messages are shown.
func NewPrinter(w io.Writer, width int, verbose bool) *Printer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Printer{w: w, width: width, verbose: verbose}
}

// SetWidth changes the wrap width for subsequent events.
func (p *Printer) SetWidth(width int) {
	if width > 0 {
		p.width = width
	}
}

// Handle prints one event.
func (p *Printer) Handle(ev event.Event) {
	switch e := ev.(type) {
	case event.AssistantChunk:
		p.chunk("worker:"+string(e.Worker), WorkerStyle(e.Worker).Render(string(e.Worker)+"›"), e.Chunk)
		return
	case event.DebateAgentChunk:
		p.chunk("agent:"+e.Agent, AgentStyle(e.Agent).Render(e.Agent+"›"), e.Chunk)
		return
	case event.DebateSummaryChunk:
		p.chunk("summary", Muted.Render("summary›"), e.Chunk)
		return
	}

	p.closeStream()

	switch e := ev.(type) {
	case event.PipelineStart:
		p.line(Header.Render(fmt.Sprintf("codepair · %d turn(s)", e.MaxTurns)))
		p.wrapped("  ", e.InitialPrompt)
	case event.StageChange:
		badge := StageBadge.Foreground(StageColor(e.NewStage)).Render("▸ " + string(e.NewStage))
		if e.Message != "" {
			badge += " " + Muted.Render(e.Message)
		}
		p.line(util.ClipANSI(badge, p.width))
	case event.StatusUpdate:
		prefix := "  "
		if e.Worker != event.WorkerNone {
			prefix += WorkerStyle(e.Worker).Render(string(e.Worker)) + " "
		}
		p.line(util.ClipANSI(prefix+Muted.Render(e.Message), p.width))
	case event.PromptRefined:
		p.line(Title.Render("Refined task"))
		p.wrapped("  ", e.RefinedPrompt)
	case event.AssistantDone:
		if !p.verbose {
			p.line("  " + WorkerStyle(e.Worker).Render(string(e.Worker)) + Muted.Render(" finished"))
		}
	case event.DebateAgentMessageComplete:
		if !p.verbose {
			first := util.FirstLine(e.FullText)
			label := AgentStyle(e.Agent).Render(fmt.Sprintf("%s (turn %d):", e.Agent, e.Turn))
			p.line(util.ClipANSI("  "+label+" "+first, p.width))
		}
	case event.DebateResultSummary:
		p.summary(e)
	case event.FolderCreate:
		p.line("  " + Secondary.Render("+") + " " + e.Path + "/")
	case event.FileCreate:
		p.line("  " + Secondary.Render("+") + " " + e.Path)
	case event.FileUpdate:
		p.line(fmt.Sprintf("  %s %s %s", Warning.Render("~"), e.Filename, Muted.Render(fmt.Sprintf("(%d lines)", util.LineCount(e.Content)))))
	case event.InstallCommand:
		p.line("  " + Muted.Render("$") + " " + e.Command)
	case event.InstallAnalysisComplete:
		p.line(Muted.Render(fmt.Sprintf("  %d install command(s)", len(e.Commands))))
	case event.InstallNoActionsNeeded:
		p.line(Muted.Render("  no new dependencies"))
	case event.PipelineError:
		p.line(Error.Render("✗ " + e.Message))
	case event.PipelineInterrupted:
		p.line(Warning.Render("■ " + e.Message))
	case event.PipelineFinish:
		p.finish(e)
	}
}

func (p *Printer) chunk(source, label, text string) {
	if !p.verbose {
		return
	}
	if p.stream != source {
		p.closeStream()
		_, _ = fmt.Fprint(p.w, label+" ")
		p.stream = source
	}
	_, _ = fmt.Fprint(p.w, text)
}

func (p *Printer) closeStream() {
	if p.stream != "" {
		_, _ = fmt.Fprintln(p.w)
		p.stream = ""
	}
}

func (p *Printer) line(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// wrapped word-wraps text to the printer width under indent.
func (p *Printer) wrapped(indent, text string) {
	width := max(p.width-len(indent), 20)
	for _, l := range strings.Split(wordwrap.String(strings.TrimSpace(text), width), "\n") {
		p.line(indent + l)
	}
}

func (p *Printer) summary(e event.DebateResultSummary) {
	width := max(p.width-4, 20)
	var b strings.Builder
	b.WriteString(Title.Render("Debate summary"))
	b.WriteString("\n")
	b.WriteString(wordwrap.String(e.SummaryText, width))
	if e.AgreedPlan != "" {
		b.WriteString("\n\n")
		b.WriteString(Secondary.Render("Agreed plan"))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(e.AgreedPlan, width))
	}
	if len(e.Options) > 0 {
		b.WriteString("\n\n")
		b.WriteString(Warning.Render("Options"))
		for _, opt := range e.Options {
			b.WriteString("\n• ")
			b.WriteString(wordwrap.String(opt, width-2))
		}
	}
	p.line(SummaryBox.Render(b.String()))
}

func (p *Printer) finish(e event.PipelineFinish) {
	p.line(Title.Render(fmt.Sprintf("Finished · %d file(s), %d install command(s)", len(e.ProjectFiles), len(e.RequiredPackages))))
	for _, cmd := range e.RequiredPackages {
		p.line("  " + Muted.Render("$") + " " + cmd)
	}
}
