package stage

import (
	"context"
	"strings"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// RefineFallbackPrefix starts the task used when the refiner returns nothing.
const RefineFallbackPrefix = "Implement the following request: "

// RefineInput is the raw request and the refiner agent.
type RefineInput struct {
	Prompt string
	Agent  llm.AgentConfig
}

// RefineResult holds the refined task and the exact system, user and
// assistant messages of the exchange.
type RefineResult struct {
	RefinedPrompt string
	Messages      []llm.Message
}

// Refine turns the raw prompt into an actionable task. Refiner fragments are
// emitted as assistant_chunk events tagged refiner.
func (r *Runner) Refine(ctx context.Context, in RefineInput, emit event.Emitter) (RefineResult, error) {
	log := r.logger.WithStage(string(event.StageRefiningPrompt)).WithWorker(string(event.WorkerRefiner))
	log.Debug("refine started", "agent", in.Agent.String())

	msgs := []llm.Message{
		llm.System(RefineSystemPrompt),
		llm.User(in.Prompt),
	}

	text, err := r.Complete(ctx, event.StageRefiningPrompt, in.Agent, msgs, chunkEmitter(emit, event.WorkerRefiner))
	if err != nil {
		return RefineResult{}, err
	}

	refined := strings.TrimSpace(text)
	if refined == "" {
		log.Warn("refiner returned empty output, using raw prompt")
		refined = RefineFallbackPrefix + in.Prompt
	}

	log.Debug("refine finished", "length", len(refined))
	return RefineResult{
		RefinedPrompt: refined,
		Messages:      append(msgs, llm.Assistant(refined)),
	}, nil
}
