package pipeline

import (
	"context"
	"fmt"
	"iter"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/Iron-Ham/codepair/internal/debate"
	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/stage"
	"github.com/Iron-Ham/codepair/internal/tracing"
)

// Pipeline runs collaboration requests against providers from a Resolver.
type Pipeline struct {
	resolver llm.Resolver
	cfg      pipelineConfig
}

// New creates a Pipeline. Credentials and backends come from resolver;
// stages never read the environment.
func New(resolver llm.Resolver, opts ...Option) *Pipeline {
	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pipeline{resolver: resolver, cfg: cfg}
}

// Defaults returns the request defaults in effect.
func (p *Pipeline) Defaults() Defaults {
	return p.cfg.defaults
}

// Prepare applies defaults, assigns a run ID and validates req.
func (p *Pipeline) Prepare(req Request) (Request, error) {
	req = req.WithDefaults(p.cfg.defaults)
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return req, req.Validate()
}

// Run executes req and yields its events. The run happens on the caller's
// goroutine as the sequence is consumed; stopping early cancels it.
func (p *Pipeline) Run(ctx context.Context, req Request) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		r := &run{pipeline: p, cancel: cancel, yield: yield}
		r.execute(ctx, req)
	}
}

// run is the per-invocation driver. It is confined to one goroutine.
type run struct {
	pipeline *Pipeline
	cancel   context.CancelFunc
	yield    func(event.Event) bool

	state  *CollaborationState
	runner *stage.Runner
	log    *logging.Logger
	task   string

	stopped  bool
	yielding bool
	finished bool
}

// turnResult carries one coder turn into the review that follows it.
type turnResult struct {
	filename string
	code     string
	response string
}

// emit yields ev unless the consumer has stopped ranging.
func (r *run) emit(ev event.Event) {
	if r.stopped {
		return
	}
	r.yielding = true
	ok := r.yield(ev)
	r.yielding = false
	if !ok {
		r.stopped = true
		r.cancel()
	}
}

func (r *run) execute(ctx context.Context, req Request) {
	cfg := r.pipeline.cfg

	req, err := r.pipeline.Prepare(req)
	r.log = cfg.logger.WithRun(req.RunID)
	r.state = NewCollaborationState(req)
	if err != nil {
		r.log.Warn("request rejected", "error", err)
		r.emit(event.NewPipelineError("Invalid request: " + err.Error()))
		r.finish()
		return
	}

	r.runner = stage.NewRunner(r.pipeline.resolver,
		stage.WithLogger(r.log),
		stage.WithTracer(cfg.tracer),
		stage.WithHistoryWindow(cfg.historyWindow),
	)

	ctx, span := tracing.StartRun(ctx, cfg.tracer, req.RunID, req.MaxTurns)
	var runErr error
	defer func() {
		tracing.End(span, runErr)
	}()

	defer func() {
		if v := recover(); v != nil {
			if r.yielding {
				// The consumer's loop body panicked; it is not ours to handle.
				panic(v)
			}
			r.log.Error("pipeline panicked", "panic", fmt.Sprint(v), "stack", string(debug.Stack()))
			runErr = fmt.Errorf("panic: %v", v)
			r.fail(ctx, fmt.Errorf("internal error: %v", v))
		}
		r.finish()
	}()

	r.log.Info("pipeline started", "max_turns", req.MaxTurns, "filename", req.Filename,
		"debate", req.DebateEnabled(), "scaffold", req.Scaffold)
	r.emit(event.NewPipelineStart(req.Prompt, req.MaxTurns))

	if err := r.collaborate(ctx, req); err != nil {
		runErr = err
		r.fail(ctx, err)
		return
	}
	r.log.Info("pipeline finished", "turns", r.state.CurrentTurn, "files", len(r.state.ProjectFiles),
		"packages", len(r.state.RequiredPackages))
}

// collaborate runs every stage. A returned error is fatal.
func (r *run) collaborate(ctx context.Context, req Request) error {
	st := r.state

	if err := r.transition(event.StageRefiningPrompt, "Refining prompt"); err != nil {
		return err
	}
	refined, err := r.runner.Refine(ctx, stage.RefineInput{Prompt: req.Prompt, Agent: req.RefinerConfig}, r.emit)
	if err != nil {
		return err
	}
	st.RefinedPrompt = refined.RefinedPrompt
	st.appendHistory(refined.Messages...)
	r.task = refined.RefinedPrompt
	r.emit(event.NewAssistantDone(event.WorkerRefiner))
	r.emit(event.NewPromptRefined(refined.RefinedPrompt))

	if req.DebateEnabled() {
		if err := r.debate(ctx, req); err != nil {
			return err
		}
	}

	if req.Scaffold {
		if err := r.scaffold(ctx, req); err != nil {
			return err
		}
	}

	revisions := 0
	for st.CurrentTurn < st.MaxTurns {
		if err := ctx.Err(); err != nil {
			return err
		}

		tr, err := r.codingTurn(ctx, req)
		if err != nil {
			return err
		}
		verdict, err := r.reviewingTurn(ctx, req, tr)
		if err != nil {
			return err
		}

		switch {
		case verdict.Advances():
			revisions = 0
			if err := r.install(ctx, req); err != nil {
				return err
			}
			st.CurrentTurn++
			r.log.Info("turn approved", "turn", st.CurrentTurn, "max_turns", st.MaxTurns)

		case verdict.Revises():
			revisions++
			if revisions > r.pipeline.cfg.maxRevisions {
				return errors.NewStageError(string(event.StageProcessingTurn),
					fmt.Sprintf("turn %d was sent back %d times without approval", st.CurrentTurn+1, revisions),
					errors.ErrRevisionLimit).WithTurn(st.CurrentTurn)
			}
			r.log.Info("revision requested", "turn", st.CurrentTurn, "revision", revisions, "status", string(verdict.Status))

		default:
			return errors.NewStageError(string(event.StageReviewingTurn),
				"reviewer returned no usable verdict ("+verdict.NextActionForW1+")",
				errors.ErrUnknownVerdict).WithWorker(string(event.WorkerReviewer)).WithTurn(st.CurrentTurn)
		}
	}

	return r.transition(event.StageDone, fmt.Sprintf("Collaboration complete after %d turns", st.CurrentTurn))
}

func (r *run) debate(ctx context.Context, req Request) error {
	if err := r.transition(event.StageDebatingPlan, "Debating the implementation plan"); err != nil {
		return err
	}

	result, err := debate.Run(ctx, r.runner, debate.Input{
		Topic:            r.state.RefinedPrompt,
		History:          r.state.History,
		DebaterA:         req.Debate.DebaterA,
		DebaterB:         req.Debate.DebaterB,
		Summarizer:       req.Debate.Summarizer,
		MaxTurnsPerAgent: req.Debate.MaxTurnsPerAgent,
	}, r.emit)
	if err != nil {
		return err
	}

	summary := result.Summary
	r.state.appendHistory(llm.Message{Role: llm.RoleSystem, Name: "summarizer", Content: "Debate summary: " + summary.SummaryText})

	if r.pipeline.cfg.applyAgreedPlan && summary.Resolved() {
		r.task = r.state.RefinedPrompt + "\n\nAgreed plan:\n" + summary.AgreedPlan
		r.emit(event.NewStatusUpdate("Debate reached agreement; the agreed plan will guide implementation", event.WorkerNone))
	} else if summary.RequiresResolution {
		r.emit(event.NewStatusUpdate("Debate did not converge; continuing with the refined prompt", event.WorkerNone))
	}
	return nil
}

func (r *run) scaffold(ctx context.Context, req Request) error {
	if err := r.transition(event.StageScaffolding, "Scaffolding project"); err != nil {
		return err
	}

	result, err := r.runner.Scaffold(ctx, stage.ScaffoldInput{
		Topic:       r.task,
		ProjectType: req.ProjectType,
		Agent:       req.Worker1Config,
	}, r.emit)
	if err != nil {
		if r.interrupted(ctx, err) {
			return err
		}
		r.nonFatal("Scaffolding failed", err)
		return nil
	}

	for path, content := range result.Files() {
		r.state.ProjectFiles[path] = content
	}
	r.emit(event.NewStatusUpdate(fmt.Sprintf("Scaffolded %d items", len(result.Items)), event.WorkerNone))
	return nil
}

func (r *run) codingTurn(ctx context.Context, req Request) (turnResult, error) {
	st := r.state
	if err := r.transition(event.StageCodingTurn, fmt.Sprintf("Worker 1 coding turn %d of %d", st.CurrentTurn+1, st.MaxTurns)); err != nil {
		return turnResult{}, err
	}
	r.emit(event.NewStatusUpdate("Writing "+st.Filename, event.WorkerCoder))

	result, err := r.runner.Codegen(ctx, stage.CodegenInput{
		Filename:       st.Filename,
		Task:           r.task,
		Anchor:         st.RefinedPrompt,
		ProjectType:    req.ProjectType,
		History:        st.History,
		CurrentContent: st.ProjectFiles[st.Filename],
		Agent:          req.Worker1Config,
	}, r.emit)
	if err != nil {
		return turnResult{}, tagTurn(err, event.WorkerCoder, st.CurrentTurn)
	}

	st.ProjectFiles[st.Filename] = result.Code
	st.appendHistory(llm.Message{Role: llm.RoleAssistant, Name: string(event.WorkerCoder), Content: result.FullText})
	r.emit(event.NewAssistantDone(event.WorkerCoder))
	r.emit(event.NewFileUpdate(st.Filename, result.Code))

	return turnResult{filename: st.Filename, code: result.Code, response: result.FullText}, nil
}

func (r *run) reviewingTurn(ctx context.Context, req Request, tr turnResult) (stage.Verdict, error) {
	st := r.state
	if err := r.transition(event.StageReviewingTurn, fmt.Sprintf("Worker 2 reviewing turn %d of %d", st.CurrentTurn+1, st.MaxTurns)); err != nil {
		return stage.Verdict{}, err
	}
	r.emit(event.NewStatusUpdate("Reviewing "+tr.filename, event.WorkerReviewer))

	result, err := r.runner.Review(ctx, stage.ReviewInput{
		Filename:      tr.filename,
		Task:          r.task,
		Anchor:        st.RefinedPrompt,
		History:       st.History,
		Files:         st.ProjectFiles,
		CoderResponse: tr.response,
		Agent:         req.Worker2Config,
	}, r.emit)
	if err != nil {
		return stage.Verdict{}, tagTurn(err, event.WorkerReviewer, st.CurrentTurn)
	}
	r.emit(event.NewAssistantDone(event.WorkerReviewer))

	verdict := result.Verdict
	st.appendHistory(
		llm.Message{Role: llm.RoleAssistant, Name: string(event.WorkerReviewer), Content: result.FullText},
		llm.Message{Role: llm.RoleSystem, Name: string(event.WorkerReviewer), Content: verdict.Summary()},
	)

	if err := r.transition(event.StageProcessingTurn, "Processing review verdict: "+string(verdict.Status)); err != nil {
		return stage.Verdict{}, err
	}
	r.emit(event.NewStatusUpdate(verdict.Summary(), event.WorkerNone))
	return verdict, nil
}

// install runs the dependency check. Only cancellation is returned; other
// failures are reported and the run continues.
func (r *run) install(ctx context.Context, req Request) error {
	st := r.state
	if err := r.transition(event.StageInstallingDeps, "Checking dependencies"); err != nil {
		return err
	}

	result, err := r.runner.Install(ctx, stage.InstallInput{
		Task:        r.task,
		Anchor:      st.RefinedPrompt,
		History:     st.History,
		Files:       st.ProjectFiles,
		ProjectType: req.ProjectType,
		Agent:       req.Worker2Config,
	}, r.emit)
	if err != nil {
		if r.interrupted(ctx, err) {
			return err
		}
		r.nonFatal("Dependency check failed", err)
		return nil
	}
	st.addPackages(result.Commands...)
	return nil
}

// transition moves the state machine and announces the new stage.
func (r *run) transition(s event.Stage, message string) error {
	if r.stopped {
		return errors.ErrCanceled
	}
	if err := r.state.setStage(s); err != nil {
		return err
	}
	r.log.Debug("stage changed", "stage", string(s))
	r.emit(event.NewStageChange(s, message))
	return nil
}

func (r *run) interrupted(ctx context.Context, err error) bool {
	return errors.IsCanceled(err) || errors.Is(ctx.Err(), context.Canceled)
}

func (r *run) nonFatal(what string, err error) {
	r.log.Warn(what, "error", err, "stage", errors.StageOf(err))
	r.emit(event.NewPipelineError(what + ": " + err.Error()))
}

// fail moves to the error stage and reports err as an interruption or a
// fatal pipeline error.
func (r *run) fail(ctx context.Context, err error) {
	st := r.state
	st.LastError = err.Error()
	if !st.Stage.IsTerminal() {
		st.Stage = event.StageError
		st.CurrentWorker = event.WorkerNone
	}

	if r.interrupted(ctx, err) {
		r.log.Info("pipeline interrupted", "stage", errors.StageOf(err))
		r.emit(event.NewStageChange(event.StageError, "Interrupted"))
		r.emit(event.NewPipelineInterrupted("Pipeline interrupted: " + err.Error()))
		return
	}

	r.log.Error("pipeline failed", "error", err, "stage", errors.StageOf(err))
	r.emit(event.NewStageChange(event.StageError, "Pipeline failed"))
	r.emit(event.NewPipelineError(err.Error()))
}

// finish emits pipeline_finish exactly once.
func (r *run) finish() {
	if r.finished {
		return
	}
	r.finished = true
	r.emit(event.NewPipelineFinish(r.state.filesSnapshot(), append([]string(nil), r.state.RequiredPackages...)))
}

func tagTurn(err error, worker event.Worker, turn int) error {
	var stageErr *errors.StageError
	if errors.As(err, &stageErr) {
		stageErr.WithWorker(string(worker)).WithTurn(turn)
	}
	return err
}
