package pipeline

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/codepair/internal/history"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/tracing"
)

// Default values applied when neither the request nor the configuration
// sets them.
const (
	DefaultFilename            = "src/App.tsx"
	DefaultProjectType         = "react"
	DefaultMaxTurns            = 6
	DefaultMaxRevisionsPerTurn = 5
	DefaultDebateTurnsPerAgent = 2
)

// Defaults fills request fields the caller left empty.
type Defaults struct {
	Filename    string
	ProjectType string
	MaxTurns    int

	Refiner    llm.AgentConfig
	Worker1    llm.AgentConfig
	Worker2    llm.AgentConfig
	DebaterA   llm.AgentConfig
	DebaterB   llm.AgentConfig
	Summarizer llm.AgentConfig

	DebateEnabled       bool
	DebateTurnsPerAgent int
	ScaffoldEnabled     bool
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Filename:            DefaultFilename,
		ProjectType:         DefaultProjectType,
		MaxTurns:            DefaultMaxTurns,
		DebateTurnsPerAgent: DefaultDebateTurnsPerAgent,
	}
}

// pipelineConfig holds optional settings for the Pipeline.
type pipelineConfig struct {
	logger          *logging.Logger
	tracer          trace.Tracer
	defaults        Defaults
	maxRevisions    int
	applyAgreedPlan bool
	historyWindow   int
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		logger:          logging.NopLogger(),
		tracer:          tracing.Tracer(),
		defaults:        DefaultDefaults(),
		maxRevisions:    DefaultMaxRevisionsPerTurn,
		applyAgreedPlan: true,
		historyWindow:   history.DefaultWindow,
	}
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

// WithLogger sets the logger. Every run logs through a child tagged with
// its run ID.
func WithLogger(l *logging.Logger) Option {
	return func(c *pipelineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer for run and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *pipelineConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithDefaults replaces the request defaults.
func WithDefaults(d Defaults) Option {
	return func(c *pipelineConfig) {
		c.defaults = d
	}
}

// WithMaxRevisionsPerTurn bounds consecutive revision verdicts within one
// turn. Values below 1 keep the default.
func WithMaxRevisionsPerTurn(n int) Option {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.maxRevisions = n
		}
	}
}

// WithAgreedPlan controls whether a resolved debate plan is appended to the
// coding task. When false the debate is informational only.
func WithAgreedPlan(apply bool) Option {
	return func(c *pipelineConfig) {
		c.applyAgreedPlan = apply
	}
}

// WithHistoryWindow sets how many recent history messages each stage sees.
func WithHistoryWindow(n int) Option {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.historyWindow = n
		}
	}
}
