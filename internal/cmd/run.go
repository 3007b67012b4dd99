package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/pipeline"
	"github.com/Iron-Ham/codepair/internal/tui"
)

var (
	runMaxTurns    int
	runFilename    string
	runProjectType string
	runDebate      bool
	runDebateTurns int
	runScaffold    bool
	runProvider    string
	runModel       string
	runTranscript  string
	runOutDir      string
	runTUI         bool
	runVerbose     bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one collaboration in the terminal",
	Long: `Run the pipeline locally and print its progress.

The prompt is taken from the arguments, or read from stdin when it is "-".
Agent models default to the config file; --provider and --model override
the refiner and both workers at once.

Examples:
  codepair run "a todo list with filters"
  codepair run --debate --max-turns 3 "a markdown previewer"
  echo "a pomodoro timer" | codepair run --out ./timer -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVarP(&runMaxTurns, "max-turns", "n", 0, "maximum coding turns (default from pipeline.max_turns)")
	runCmd.Flags().StringVarP(&runFilename, "filename", "f", "", "primary file the coder writes")
	runCmd.Flags().StringVar(&runProjectType, "project-type", "", "project type passed to the coder")
	runCmd.Flags().BoolVar(&runDebate, "debate", false, "run the planning debate before coding")
	runCmd.Flags().IntVar(&runDebateTurns, "debate-turns", 0, "debate turns per agent")
	runCmd.Flags().BoolVar(&runScaffold, "scaffold", false, "plan the project structure before coding")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "provider for all agents ("+strings.Join(llm.SupportedProviders(), ", ")+")")
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "model for all agents")
	runCmd.Flags().StringVar(&runTranscript, "transcript", "", "write a JSONL transcript of the run to this file")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "", "write the generated project to this directory")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a live full-screen view")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "stream model output as it arrives")

	rootCmd.AddCommand(runCmd)
}

// runOutcome is what the command needs from the event stream once it ends.
type runOutcome struct {
	finish      *event.PipelineFinish
	commands    []string
	failed      bool
	interrupted bool
}

func (o *runOutcome) handle(ev event.Event) {
	switch e := ev.(type) {
	case event.StageChange:
		if e.NewStage == event.StageError {
			o.failed = true
		}
	case event.PipelineInterrupted:
		o.interrupted = true
	case event.InstallCommand:
		o.commands = append(o.commands, e.Command)
	case event.PipelineFinish:
		o.finish = &e
	}
}

func (o *runOutcome) err() error {
	switch {
	case o.interrupted:
		return errors.New("run interrupted")
	case o.failed:
		return errors.New("run failed")
	case o.finish == nil:
		return errors.New("run ended without a result")
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	shutdownTracing, err := setupTracing(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	p := newPipeline(cfg, logger)
	req, err := p.Prepare(buildRequest(cmd, prompt))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := event.NewBus(logger.WithRun(req.RunID))
	outcome := &runOutcome{}
	bus.SubscribeAll(outcome.handle)

	if runTranscript != "" {
		f, err := os.Create(runTranscript)
		if err != nil {
			return fmt.Errorf("failed to create transcript: %w", err)
		}
		rec := event.NewRecorder(f, req.RunID)
		bus.SubscribeAll(rec.Handle)
		defer func() {
			_ = rec.Close()
			_ = f.Close()
		}()
	}

	events := publishing(p.Run(ctx, req), bus)
	if runTUI {
		if _, err := tui.RunLive(events, cancel); err != nil {
			return err
		}
		// The live view's log is gone with the alt screen; leave a summary.
		if outcome.finish != nil {
			tui.NewPrinter(cmd.OutOrStdout(), tui.TerminalWidth(os.Stdout), false).Handle(*outcome.finish)
		}
	} else {
		printer := tui.NewPrinter(cmd.OutOrStdout(), tui.TerminalWidth(os.Stdout), runVerbose)
		bus.SubscribeAll(printer.Handle)
		for range events {
		}
	}

	if runOutDir != "" && outcome.finish != nil {
		if err := writeProject(runOutDir, req, *outcome.finish, outcome.commands); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project written to %s\n", runOutDir)
	}
	return outcome.err()
}

// publishing passes every event of seq through bus before yielding it.
func publishing(seq iter.Seq[event.Event], bus *event.Bus) iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		for ev := range seq {
			bus.Publish(ev)
			if !yield(ev) {
				return
			}
		}
	}
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if prompt == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}

// buildRequest maps flags onto a request; unset flags are left for the
// pipeline defaults.
func buildRequest(cmd *cobra.Command, prompt string) pipeline.Request {
	req := pipeline.Request{
		Prompt:      prompt,
		ProjectType: runProjectType,
		Filename:    runFilename,
		MaxTurns:    runMaxTurns,
		Scaffold:    runScaffold,
	}

	if runProvider != "" || runModel != "" {
		agent := llm.AgentConfig{Provider: runProvider, Model: runModel}
		if agent.Provider == "" {
			agent.Provider = llm.ProviderOllama
		}
		req.RefinerConfig = agent
		req.Worker1Config = agent
		req.Worker2Config = agent
	}

	if cmd.Flags().Changed("debate") || cmd.Flags().Changed("debate-turns") {
		req.Debate = &pipeline.DebateOptions{
			Enabled:          runDebate || runDebateTurns > 0,
			MaxTurnsPerAgent: runDebateTurns,
		}
	}
	return req
}
