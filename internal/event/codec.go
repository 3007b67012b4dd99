package event

import (
	"encoding/json"
	"fmt"
)

// Decode rebuilds a typed Event from its wire type and JSON payload, as
// produced by json.Marshal on the event. The returned event's Timestamp is
// the decode time.
func Decode(t Type, data []byte) (Event, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	base := newBaseEvent(t)

	switch t {
	case TypePipelineStart:
		e, err := unmarshal[PipelineStart](data)
		e.baseEvent = base
		return e, err
	case TypeStageChange:
		e, err := unmarshal[StageChange](data)
		e.baseEvent = base
		return e, err
	case TypeStatusUpdate:
		e, err := unmarshal[StatusUpdate](data)
		e.baseEvent = base
		return e, err
	case TypePromptRefined:
		e, err := unmarshal[PromptRefined](data)
		e.baseEvent = base
		return e, err
	case TypeDebateAgentChunk:
		e, err := unmarshal[DebateAgentChunk](data)
		e.baseEvent = base
		return e, err
	case TypeDebateAgentMessageComplete:
		e, err := unmarshal[DebateAgentMessageComplete](data)
		e.baseEvent = base
		return e, err
	case TypeDebateSummaryChunk:
		e, err := unmarshal[DebateSummaryChunk](data)
		e.baseEvent = base
		return e, err
	case TypeDebateResultSummary:
		e, err := unmarshal[DebateResultSummary](data)
		e.baseEvent = base
		return e, err
	case TypeFolderCreate:
		e, err := unmarshal[FolderCreate](data)
		e.baseEvent = base
		return e, err
	case TypeFileCreate:
		e, err := unmarshal[FileCreate](data)
		e.baseEvent = base
		return e, err
	case TypeFileUpdate:
		e, err := unmarshal[FileUpdate](data)
		e.baseEvent = base
		return e, err
	case TypeAssistantChunk:
		e, err := unmarshal[AssistantChunk](data)
		e.baseEvent = base
		return e, err
	case TypeAssistantDone:
		e, err := unmarshal[AssistantDone](data)
		e.baseEvent = base
		return e, err
	case TypeInstallCommand:
		e, err := unmarshal[InstallCommand](data)
		e.baseEvent = base
		return e, err
	case TypeInstallAnalysisComplete:
		e, err := unmarshal[InstallAnalysisComplete](data)
		e.baseEvent = base
		return e, err
	case TypeInstallNoActionsNeeded:
		return InstallNoActionsNeeded{baseEvent: base}, nil
	case TypePipelineError:
		e, err := unmarshal[PipelineError](data)
		e.baseEvent = base
		return e, err
	case TypePipelineInterrupted:
		e, err := unmarshal[PipelineInterrupted](data)
		e.baseEvent = base
		return e, err
	case TypePipelineFinish:
		e, err := unmarshal[PipelineFinish](data)
		e.baseEvent = base
		return e, err
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

func unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode event payload: %w", err)
	}
	return v, nil
}
