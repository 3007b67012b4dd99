package event

import (
	"time"

	"github.com/Iron-Ham/codepair/internal/llm"
)

// Type is the wire name of an event, used as the SSE event name.
type Type string

// Event types, one per pipeline event variant.
const (
	TypePipelineStart              Type = "pipeline_start"
	TypeStageChange                Type = "stage_change"
	TypeStatusUpdate               Type = "status_update"
	TypePromptRefined              Type = "prompt_refined"
	TypeDebateAgentChunk           Type = "debate_agent_chunk"
	TypeDebateAgentMessageComplete Type = "debate_agent_message_complete"
	TypeDebateSummaryChunk         Type = "debate_summary_chunk"
	TypeDebateResultSummary        Type = "debate_result_summary"
	TypeFolderCreate               Type = "folder_create"
	TypeFileCreate                 Type = "file_create"
	TypeFileUpdate                 Type = "file_update"
	TypeAssistantChunk             Type = "assistant_chunk"
	TypeAssistantDone              Type = "assistant_done"
	TypeInstallCommand             Type = "install_command"
	TypeInstallAnalysisComplete    Type = "install_analysis_complete"
	TypeInstallNoActionsNeeded     Type = "install_no_actions_needed"
	TypePipelineError              Type = "pipeline_error"
	TypePipelineInterrupted        Type = "pipeline_interrupted"
	TypePipelineFinish             Type = "pipeline_finish"
)

// Stage is one state of the collaboration state machine.
type Stage string

const (
	StageInitial        Stage = "initial"
	StageRefiningPrompt Stage = "refining_prompt"
	StageDebatingPlan   Stage = "debating_plan"
	StageScaffolding    Stage = "scaffolding"
	StageInstallingDeps Stage = "installing_deps"
	StageCodingTurn     Stage = "coding_turn"
	StageReviewingTurn  Stage = "reviewing_turn"
	StageProcessingTurn Stage = "processing_turn"
	StageError          Stage = "error"
	StageDone           Stage = "done"
)

// IsTerminal reports whether no further stage logic runs after s.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageError
}

// Worker identifies which agent role produced streamed output.
type Worker string

const (
	WorkerNone     Worker = ""
	WorkerCoder    Worker = "w1"
	WorkerReviewer Worker = "w2"
	WorkerRefiner  Worker = "refiner"
)

// Event is implemented by every pipeline event. The set of implementations
// is closed: only this package can add variants, so consumers can switch
// exhaustively over the concrete types.
//
// JSON encoding of an Event yields its data payload only; the type travels
// separately (as the SSE event name or the transcript "type" field).
type Event interface {
	// EventType returns the wire name of this event.
	EventType() Type

	// Timestamp returns when the event was created.
	Timestamp() time.Time

	sealed()
}

// Emitter receives events from a stage as they are produced.
type Emitter func(Event)

// Discard is an Emitter that drops every event.
func Discard(Event) {}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType Type
	timestamp time.Time
}

func (e baseEvent) EventType() Type      { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }
func (baseEvent) sealed()                {}

func newBaseEvent(t Type) baseEvent {
	return baseEvent{
		eventType: t,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Pipeline Lifecycle Events
// -----------------------------------------------------------------------------

// PipelineStart is always the first event of a run.
type PipelineStart struct {
	baseEvent
	InitialPrompt string `json:"initialPrompt"`
	MaxTurns      int    `json:"maxTurns"`
}

// NewPipelineStart creates a PipelineStart event.
func NewPipelineStart(initialPrompt string, maxTurns int) PipelineStart {
	return PipelineStart{
		baseEvent:     newBaseEvent(TypePipelineStart),
		InitialPrompt: initialPrompt,
		MaxTurns:      maxTurns,
	}
}

// StageChange is emitted on every stage transition.
type StageChange struct {
	baseEvent
	NewStage Stage  `json:"newStage"`
	Message  string `json:"message,omitempty"`
}

// NewStageChange creates a StageChange event.
func NewStageChange(stage Stage, message string) StageChange {
	return StageChange{
		baseEvent: newBaseEvent(TypeStageChange),
		NewStage:  stage,
		Message:   message,
	}
}

// StatusUpdate is free-form progress narration.
type StatusUpdate struct {
	baseEvent
	Message string `json:"message"`
	Worker  Worker `json:"worker,omitempty"`
}

// NewStatusUpdate creates a StatusUpdate event. worker may be WorkerNone.
func NewStatusUpdate(message string, worker Worker) StatusUpdate {
	return StatusUpdate{
		baseEvent: newBaseEvent(TypeStatusUpdate),
		Message:   message,
		Worker:    worker,
	}
}

// PromptRefined carries the refined task once the refiner has finished.
type PromptRefined struct {
	baseEvent
	RefinedPrompt string `json:"refinedPrompt"`
}

// NewPromptRefined creates a PromptRefined event.
func NewPromptRefined(refined string) PromptRefined {
	return PromptRefined{
		baseEvent:     newBaseEvent(TypePromptRefined),
		RefinedPrompt: refined,
	}
}

// PipelineError reports a failure. Fatal errors are followed only by
// PipelineFinish; non-fatal ones (install, scaffold) are not.
type PipelineError struct {
	baseEvent
	Message string `json:"message"`
}

// NewPipelineError creates a PipelineError event.
func NewPipelineError(message string) PipelineError {
	return PipelineError{
		baseEvent: newBaseEvent(TypePipelineError),
		Message:   message,
	}
}

// PipelineInterrupted reports that the caller canceled the run.
type PipelineInterrupted struct {
	baseEvent
	Message string `json:"message"`
}

// NewPipelineInterrupted creates a PipelineInterrupted event.
func NewPipelineInterrupted(message string) PipelineInterrupted {
	return PipelineInterrupted{
		baseEvent: newBaseEvent(TypePipelineInterrupted),
		Message:   message,
	}
}

// PipelineFinish is emitted exactly once per run, always last, carrying the
// last known project state.
type PipelineFinish struct {
	baseEvent
	ProjectFiles     map[string]string `json:"projectFiles"`
	RequiredPackages []string          `json:"requiredPackages"`
}

// NewPipelineFinish creates a PipelineFinish event. Nil inputs are encoded as
// an empty object and an empty array.
func NewPipelineFinish(files map[string]string, packages []string) PipelineFinish {
	if files == nil {
		files = map[string]string{}
	}
	if packages == nil {
		packages = []string{}
	}
	return PipelineFinish{
		baseEvent:        newBaseEvent(TypePipelineFinish),
		ProjectFiles:     files,
		RequiredPackages: packages,
	}
}

// -----------------------------------------------------------------------------
// Debate Events
// -----------------------------------------------------------------------------

// DebateAgentChunk is one streamed fragment from a debater.
type DebateAgentChunk struct {
	baseEvent
	Agent string `json:"agent"`
	Chunk string `json:"chunk"`
}

// NewDebateAgentChunk creates a DebateAgentChunk event.
func NewDebateAgentChunk(agent, chunk string) DebateAgentChunk {
	return DebateAgentChunk{
		baseEvent: newBaseEvent(TypeDebateAgentChunk),
		Agent:     agent,
		Chunk:     chunk,
	}
}

// DebateAgentMessageComplete closes one debate turn.
type DebateAgentMessageComplete struct {
	baseEvent
	Agent    string `json:"agent"`
	FullText string `json:"fullText"`
	Turn     int    `json:"turn"`
}

// NewDebateAgentMessageComplete creates a DebateAgentMessageComplete event.
func NewDebateAgentMessageComplete(agent, fullText string, turn int) DebateAgentMessageComplete {
	return DebateAgentMessageComplete{
		baseEvent: newBaseEvent(TypeDebateAgentMessageComplete),
		Agent:     agent,
		FullText:  fullText,
		Turn:      turn,
	}
}

// DebateSummaryChunk is one streamed fragment from the summarizer.
type DebateSummaryChunk struct {
	baseEvent
	Chunk string `json:"chunk"`
}

// NewDebateSummaryChunk creates a DebateSummaryChunk event.
func NewDebateSummaryChunk(chunk string) DebateSummaryChunk {
	return DebateSummaryChunk{
		baseEvent: newBaseEvent(TypeDebateSummaryChunk),
		Chunk:     chunk,
	}
}

// DebateResultSummary carries the parsed (or fallback) debate decision and
// the full transcript it was derived from.
type DebateResultSummary struct {
	baseEvent
	SummaryText        string        `json:"summaryText"`
	FullTranscript     []llm.Message `json:"fullTranscript"`
	AgreedPlan         string        `json:"agreedPlan,omitempty"`
	Options            []string      `json:"options"`
	RequiresResolution bool          `json:"requiresResolution"`
}

// NewDebateResultSummary creates a DebateResultSummary event.
func NewDebateResultSummary(summaryText, agreedPlan string, options []string, requiresResolution bool, transcript []llm.Message) DebateResultSummary {
	if options == nil {
		options = []string{}
	}
	if transcript == nil {
		transcript = []llm.Message{}
	}
	return DebateResultSummary{
		baseEvent:          newBaseEvent(TypeDebateResultSummary),
		SummaryText:        summaryText,
		FullTranscript:     transcript,
		AgreedPlan:         agreedPlan,
		Options:            options,
		RequiresResolution: requiresResolution,
	}
}

// -----------------------------------------------------------------------------
// File Events
// -----------------------------------------------------------------------------

// FolderCreate is emitted per scaffolded folder.
type FolderCreate struct {
	baseEvent
	Path string `json:"path"`
}

// NewFolderCreate creates a FolderCreate event.
func NewFolderCreate(path string) FolderCreate {
	return FolderCreate{
		baseEvent: newBaseEvent(TypeFolderCreate),
		Path:      path,
	}
}

// FileCreate is emitted per scaffolded file.
type FileCreate struct {
	baseEvent
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewFileCreate creates a FileCreate event.
func NewFileCreate(path, content string) FileCreate {
	return FileCreate{
		baseEvent: newBaseEvent(TypeFileCreate),
		Path:      path,
		Content:   content,
	}
}

// FileUpdate is emitted whenever a file's full content changes.
type FileUpdate struct {
	baseEvent
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// NewFileUpdate creates a FileUpdate event.
func NewFileUpdate(filename, content string) FileUpdate {
	return FileUpdate{
		baseEvent: newBaseEvent(TypeFileUpdate),
		Filename:  filename,
		Content:   content,
	}
}

// -----------------------------------------------------------------------------
// Worker Streaming Events
// -----------------------------------------------------------------------------

// AssistantChunk is one streamed fragment from a worker or the refiner.
type AssistantChunk struct {
	baseEvent
	Worker Worker `json:"worker"`
	Chunk  string `json:"chunk"`
}

// NewAssistantChunk creates an AssistantChunk event.
func NewAssistantChunk(worker Worker, chunk string) AssistantChunk {
	return AssistantChunk{
		baseEvent: newBaseEvent(TypeAssistantChunk),
		Worker:    worker,
		Chunk:     chunk,
	}
}

// AssistantDone closes a worker's streamed response.
type AssistantDone struct {
	baseEvent
	Worker Worker `json:"worker"`
}

// NewAssistantDone creates an AssistantDone event.
func NewAssistantDone(worker Worker) AssistantDone {
	return AssistantDone{
		baseEvent: newBaseEvent(TypeAssistantDone),
		Worker:    worker,
	}
}

// -----------------------------------------------------------------------------
// Install Events
// -----------------------------------------------------------------------------

// InstallCommand is emitted per identified missing package.
type InstallCommand struct {
	baseEvent
	Command string `json:"command"`
}

// NewInstallCommand creates an InstallCommand event.
func NewInstallCommand(command string) InstallCommand {
	return InstallCommand{
		baseEvent: newBaseEvent(TypeInstallCommand),
		Command:   command,
	}
}

// InstallAnalysisComplete lists every command found by one install check.
type InstallAnalysisComplete struct {
	baseEvent
	Commands []string `json:"commands"`
}

// NewInstallAnalysisComplete creates an InstallAnalysisComplete event.
func NewInstallAnalysisComplete(commands []string) InstallAnalysisComplete {
	return InstallAnalysisComplete{
		baseEvent: newBaseEvent(TypeInstallAnalysisComplete),
		Commands:  commands,
	}
}

// InstallNoActionsNeeded is emitted when an install check found nothing.
type InstallNoActionsNeeded struct {
	baseEvent
}

// NewInstallNoActionsNeeded creates an InstallNoActionsNeeded event.
func NewInstallNoActionsNeeded() InstallNoActionsNeeded {
	return InstallNoActionsNeeded{baseEvent: newBaseEvent(TypeInstallNoActionsNeeded)}
}
