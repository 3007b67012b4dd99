package debate

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/stage"
)

type debater struct {
	name   string
	label  string
	system string
	agent  llm.AgentConfig
}

// Run executes a full debate and emits its events. The returned error is
// non-nil only when ctx is canceled; every other failure degrades into the
// result.
func Run(ctx context.Context, runner *stage.Runner, in Input, emit event.Emitter) (Result, error) {
	if emit == nil {
		emit = event.Discard
	}
	perAgent := in.MaxTurnsPerAgent
	if perAgent <= 0 {
		perAgent = DefaultMaxTurnsPerAgent
	}

	log := runner.Logger().WithStage(string(event.StageDebatingPlan))
	log.Debug("debate started", "turns_per_agent", perAgent)

	debaters := [2]debater{
		{name: NameDebaterA, label: "Debater A", system: ProposerSystemPrompt, agent: in.DebaterA},
		{name: NameDebaterB, label: "Debater B", system: CritiquerSystemPrompt, agent: in.DebaterB},
	}
	sess := NewSession(in.Topic)
	shared := runner.Bound(in.History, in.Topic)

	total := 2 * perAgent
	for turn := 1; turn <= total; turn++ {
		d := debaters[(turn-1)%2]
		emit(event.NewStatusUpdate(fmt.Sprintf("%s is speaking (turn %d of %d)", d.label, turn, total), event.WorkerNone))

		msgs := make([]llm.Message, 0, len(shared)+turn+1)
		msgs = append(msgs, llm.System(d.system))
		msgs = append(msgs, shared...)
		msgs = append(msgs, sess.ViewFor(d.name)...)

		text, err := runner.Complete(ctx, event.StageDebatingPlan, d.agent, msgs, func(chunk string) {
			emit(event.NewDebateAgentChunk(d.name, chunk))
		})
		if err != nil {
			if errors.IsCanceled(err) || ctx.Err() != nil {
				return Result{}, err
			}
			log.Warn("debate turn failed, summarizing early", "worker", d.name, "turn", turn, "error", err)
			emit(event.NewStatusUpdate(fmt.Sprintf("%s failed on turn %d: %v. Summarizing the debate so far.", d.label, turn, err), event.WorkerNone))
			break
		}

		if err := sess.Record(d.name, text); err != nil {
			return Result{}, err
		}
		emit(event.NewDebateAgentMessageComplete(d.name, text, turn))
	}

	summary, parsed, err := summarize(ctx, runner, sess, in.Summarizer, emit)
	if err != nil {
		return Result{}, err
	}
	if !parsed {
		log.Warn("debate summary unusable, using fallback")
	}
	if err := sess.Resolve(summary); err != nil {
		return Result{}, err
	}

	transcript := sess.Transcript()
	emit(event.NewDebateResultSummary(summary.SummaryText, summary.AgreedPlan, summary.Options, summary.RequiresResolution, transcript))

	log.Debug("debate finished", "turns", sess.Turns(), "parsed", parsed, "requires_resolution", summary.RequiresResolution)
	return Result{
		Summary:    summary,
		Transcript: transcript,
		Parsed:     parsed,
		Turns:      sess.Turns(),
	}, nil
}

func summarize(ctx context.Context, runner *stage.Runner, sess *Session, agent llm.AgentConfig, emit event.Emitter) (Summary, bool, error) {
	emit(event.NewStatusUpdate("Summarizing the debate", event.WorkerNone))

	msgs := []llm.Message{
		llm.System(SummarizerSystemPrompt),
		llm.User(fmt.Sprintf(SummarizerUserTemplate, sess.Render())),
	}
	text, err := runner.Complete(ctx, event.StageDebatingPlan, agent, msgs, func(chunk string) {
		emit(event.NewDebateSummaryChunk(chunk))
	})
	if err != nil {
		if errors.IsCanceled(err) || ctx.Err() != nil {
			return Summary{}, false, err
		}
		runner.Logger().WithStage(string(event.StageDebatingPlan)).Warn("summarizer failed", "error", err)
		return FallbackSummary(err.Error()), false, nil
	}

	if summary, ok := ParseSummary(text); ok {
		return summary, true, nil
	}
	return FallbackSummary(text), false, nil
}
