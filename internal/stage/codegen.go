package stage

import (
	"context"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/extract"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// CodegenInput is everything the coder sees for one turn.
type CodegenInput struct {
	Filename       string
	Task           string
	Anchor         string
	ProjectType    string
	History        []llm.Message
	CurrentContent string
	Agent          llm.AgentConfig
}

// CodegenResult carries the new file content and the coder's full reply,
// which the reviewer reads alongside the code.
type CodegenResult struct {
	Code     string
	FullText string
	// Fenced is false when no matching code block was found and Code is the
	// whole reply.
	Fenced bool
}

// Codegen asks the coder to (re)write one file. Fragments are emitted as
// assistant_chunk events tagged w1.
func (r *Runner) Codegen(ctx context.Context, in CodegenInput, emit event.Emitter) (CodegenResult, error) {
	log := r.logger.WithStage(string(event.StageCodingTurn)).WithWorker(string(event.WorkerCoder))
	log.Debug("codegen started", "filename", in.Filename, "agent", in.Agent.String())

	langs := extract.LangsFor(in.Filename)
	fenceTag := "text"
	if len(langs) > 0 {
		fenceTag = langs[0]
	}

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.System(FormatCodegenSystem(in.ProjectType, in.Filename, fenceTag)))
	msgs = append(msgs, r.Bound(in.History, anchorOr(in.Anchor, in.Task))...)
	msgs = append(msgs, llm.User(FormatCodegenUser(in.Task, in.Filename, in.CurrentContent)))

	text, err := r.Complete(ctx, event.StageCodingTurn, in.Agent, msgs, chunkEmitter(emit, event.WorkerCoder))
	if err != nil {
		return CodegenResult{}, err
	}

	code, ok := extract.CodeBlock(text, langs...)
	if !ok {
		log.Warn("no fenced code block in coder output, using full response", "filename", in.Filename)
		code = text
	}

	log.Debug("codegen finished", "filename", in.Filename, "bytes", len(code), "fenced", ok)
	return CodegenResult{Code: code, FullText: text, Fenced: ok}, nil
}
