// Package stage implements the single-call pipeline stages: refine, scaffold,
// codegen, review and install.
//
// Each stage makes exactly one completion call, forwards streamed fragments
// through an [event.Emitter], and returns either a result or an error. A
// stage never decides whether its failure ends the run; transport failures
// come back as *errors.StageError tagged with the stage name and the
// pipeline classifies them.
package stage

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/history"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/tracing"
)

// Runner executes stages against providers obtained from a Resolver.
type Runner struct {
	resolver llm.Resolver
	logger   *logging.Logger
	tracer   trace.Tracer
	window   int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithHistoryWindow sets how many recent history messages each call sees.
func WithHistoryWindow(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.window = n
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(resolver llm.Resolver, opts ...Option) *Runner {
	r := &Runner{
		resolver: resolver,
		logger:   logging.NopLogger(),
		tracer:   tracing.Tracer(),
		window:   history.DefaultWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the runner's logger.
func (r *Runner) Logger() *logging.Logger { return r.logger }

// Tracer returns the runner's tracer.
func (r *Runner) Tracer() trace.Tracer { return r.tracer }

// anchorOr returns anchor, or task when anchor is empty.
func anchorOr(anchor, task string) string {
	if anchor != "" {
		return anchor
	}
	return task
}

// Bound applies the runner's history window.
func (r *Runner) Bound(msgs []llm.Message, anchor string) []llm.Message {
	return history.BoundN(msgs, anchor, r.window)
}

// Complete resolves agent, streams one completion and returns the full text.
// Failures are wrapped in a StageError for stage; cancellation stays
// detectable with errors.IsCanceled.
func (r *Runner) Complete(ctx context.Context, stage event.Stage, agent llm.AgentConfig, msgs []llm.Message, onChunk func(string)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewStageError(string(stage), "not started", err)
	}

	ctx, span := tracing.StartStage(ctx, r.tracer, string(stage), agent)

	provider, err := r.resolver.Provider(agent)
	if err != nil {
		err = errors.NewStageError(string(stage), "resolve provider "+agent.String(), err)
		tracing.End(span, err)
		return "", err
	}

	text, err := llm.Complete(ctx, provider, llm.Request{Model: agent.Model, Messages: msgs}, onChunk)
	if err != nil {
		err = errors.NewStageError(string(stage), "completion failed", err)
	}
	tracing.End(span, err)
	return text, err
}

// chunkEmitter forwards fragments as assistant_chunk events for worker.
func chunkEmitter(emit event.Emitter, worker event.Worker) func(string) {
	if emit == nil {
		return nil
	}
	return func(chunk string) {
		emit(event.NewAssistantChunk(worker, chunk))
	}
}

func emitOrDiscard(emit event.Emitter) event.Emitter {
	if emit == nil {
		return event.Discard
	}
	return emit
}
