package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// Request limits.
const (
	MinTurns = 1
	MaxTurns = 50
)

// Request is one collaboration invocation. It doubles as the JSON body of
// the HTTP endpoint.
type Request struct {
	// RunID tags logs, transcripts and mirrored events. Generated when empty.
	RunID string `json:"runId,omitempty"`

	Prompt        string          `json:"prompt"`
	RefinerConfig llm.AgentConfig `json:"refinerConfig"`
	Worker1Config llm.AgentConfig `json:"worker1Config"`
	Worker2Config llm.AgentConfig `json:"worker2Config"`

	ProjectType string `json:"projectType,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MaxTurns    int    `json:"maxTurns,omitempty"`

	Debate   *DebateOptions `json:"debate,omitempty"`
	Scaffold bool           `json:"scaffold,omitempty"`
}

// DebateOptions enables and configures the planning debate.
type DebateOptions struct {
	Enabled          bool            `json:"enabled"`
	MaxTurnsPerAgent int             `json:"maxTurnsPerAgent,omitempty"`
	DebaterA         llm.AgentConfig `json:"debaterA"`
	DebaterB         llm.AgentConfig `json:"debaterB"`
	Summarizer       llm.AgentConfig `json:"summarizer"`
}

// DebateEnabled reports whether the request asks for a debate.
func (r Request) DebateEnabled() bool {
	return r.Debate != nil && r.Debate.Enabled
}

// WithDefaults returns a copy of r with empty fields filled from d. Debate
// roles fall back to the worker and refiner configs.
func (r Request) WithDefaults(d Defaults) Request {
	r.RefinerConfig = r.RefinerConfig.Or(d.Refiner)
	r.Worker1Config = r.Worker1Config.Or(d.Worker1)
	r.Worker2Config = r.Worker2Config.Or(d.Worker2)

	if r.ProjectType == "" {
		r.ProjectType = d.ProjectType
	}
	if r.Filename == "" {
		r.Filename = d.Filename
	}
	if r.MaxTurns == 0 {
		r.MaxTurns = d.MaxTurns
	}

	if r.Debate == nil && d.DebateEnabled {
		r.Debate = &DebateOptions{Enabled: true}
	}
	if r.Debate != nil {
		deb := *r.Debate
		if deb.MaxTurnsPerAgent == 0 {
			deb.MaxTurnsPerAgent = d.DebateTurnsPerAgent
		}
		deb.DebaterA = deb.DebaterA.Or(d.DebaterA).Or(r.Worker1Config)
		deb.DebaterB = deb.DebaterB.Or(d.DebaterB).Or(r.Worker2Config)
		deb.Summarizer = deb.Summarizer.Or(d.Summarizer).Or(r.RefinerConfig)
		r.Debate = &deb
	}
	if !r.Scaffold {
		r.Scaffold = d.ScaffoldEnabled
	}
	return r
}

type agentField struct {
	field string
	cfg   llm.AgentConfig
}

// Validate checks a request after defaults have been applied.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.NewValidationError("prompt is required").WithField("prompt").WithCause(errors.ErrEmptyPrompt)
	}

	agents := []agentField{
		{"refinerConfig", r.RefinerConfig},
		{"worker1Config", r.Worker1Config},
		{"worker2Config", r.Worker2Config},
	}
	if r.DebateEnabled() {
		agents = append(agents,
			agentField{"debate.debaterA", r.Debate.DebaterA},
			agentField{"debate.debaterB", r.Debate.DebaterB},
			agentField{"debate.summarizer", r.Debate.Summarizer},
		)
	}
	for _, a := range agents {
		if err := a.cfg.Validate(); err != nil {
			var verr *errors.ValidationError
			if errors.As(err, &verr) {
				verr.WithField(a.field + "." + verr.Field)
			}
			return err
		}
	}

	if r.MaxTurns < MinTurns || r.MaxTurns > MaxTurns {
		return errors.NewValidationError(fmt.Sprintf("maxTurns must be between %d and %d", MinTurns, MaxTurns)).
			WithField("maxTurns").WithValue(r.MaxTurns)
	}
	if r.DebateEnabled() && r.Debate.MaxTurnsPerAgent < 0 {
		return errors.NewValidationError("debate.maxTurnsPerAgent must not be negative").
			WithField("debate.maxTurnsPerAgent").WithValue(r.Debate.MaxTurnsPerAgent)
	}
	if strings.TrimSpace(r.Filename) == "" {
		return errors.NewValidationError("filename is required").WithField("filename")
	}
	return nil
}

// CollaborationState is the mutable record of one run. It is owned by the
// run's goroutine and never shared.
type CollaborationState struct {
	Stage            event.Stage
	InitialPrompt    string
	RefinedPrompt    string
	CurrentTurn      int
	MaxTurns         int
	ProjectFiles     map[string]string
	RequiredPackages []string
	History          []llm.Message
	CurrentWorker    event.Worker
	LastError        string
	Filename         string
}

// NewCollaborationState creates the state for a defaulted request.
func NewCollaborationState(req Request) *CollaborationState {
	return &CollaborationState{
		Stage:            event.StageInitial,
		InitialPrompt:    req.Prompt,
		MaxTurns:         req.MaxTurns,
		ProjectFiles:     make(map[string]string),
		RequiredPackages: []string{},
		History:          []llm.Message{},
		Filename:         req.Filename,
	}
}

// transitions lists the stages reachable from each stage. error is reachable
// from every non-terminal stage.
var transitions = map[event.Stage][]event.Stage{
	event.StageInitial:        {event.StageRefiningPrompt},
	event.StageRefiningPrompt: {event.StageDebatingPlan, event.StageScaffolding, event.StageCodingTurn, event.StageDone},
	event.StageDebatingPlan:   {event.StageScaffolding, event.StageCodingTurn, event.StageDone},
	event.StageScaffolding:    {event.StageCodingTurn, event.StageDone},
	event.StageCodingTurn:     {event.StageReviewingTurn},
	event.StageReviewingTurn:  {event.StageProcessingTurn},
	event.StageProcessingTurn: {event.StageInstallingDeps, event.StageCodingTurn},
	event.StageInstallingDeps: {event.StageCodingTurn, event.StageDone},
}

// CanTransition reports whether the stage machine allows from → to.
func CanTransition(from, to event.Stage) bool {
	if from.IsTerminal() {
		return false
	}
	if to == event.StageError {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// setStage moves to stage and derives CurrentWorker from it.
func (s *CollaborationState) setStage(stage event.Stage) error {
	if !CanTransition(s.Stage, stage) {
		return fmt.Errorf("pipeline: invalid stage transition %s → %s", s.Stage, stage)
	}
	s.Stage = stage
	switch stage {
	case event.StageCodingTurn:
		s.CurrentWorker = event.WorkerCoder
	case event.StageReviewingTurn:
		s.CurrentWorker = event.WorkerReviewer
	default:
		s.CurrentWorker = event.WorkerNone
	}
	return nil
}

// addPackages appends entries not already present.
func (s *CollaborationState) addPackages(pkgs ...string) {
	for _, p := range pkgs {
		if !slices.Contains(s.RequiredPackages, p) {
			s.RequiredPackages = append(s.RequiredPackages, p)
		}
	}
}

func (s *CollaborationState) appendHistory(msgs ...llm.Message) {
	s.History = append(s.History, msgs...)
}

// filesSnapshot copies ProjectFiles so events never alias live state.
func (s *CollaborationState) filesSnapshot() map[string]string {
	return maps.Clone(s.ProjectFiles)
}
