package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/extract"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// Status is the reviewer's decision.
type Status string

const (
	StatusApproved           Status = "APPROVED"
	StatusRevisionNeeded     Status = "REVISION_NEEDED"
	StatusNeedsClarification Status = "NEEDS_CLARIFICATION"
	StatusUnknown            Status = "UNKNOWN"
)

// Markers placed in NextActionForW1 when no verdict could be parsed.
const (
	ErrNoJSONFound = "ERROR_NO_JSON_FOUND"
	ErrParsingJSON = "ERROR_PARSING_JSON"
)

// Verdict is one parsed review.
type Verdict struct {
	Status          Status   `json:"status"`
	KeyIssues       []string `json:"key_issues"`
	NextActionForW1 string   `json:"next_action_for_w1"`
}

// Advances reports whether the turn moves forward.
func (v Verdict) Advances() bool { return v.Status == StatusApproved }

// Revises reports whether the coder should rework the same file.
func (v Verdict) Revises() bool {
	return v.Status == StatusRevisionNeeded || v.Status == StatusNeedsClarification
}

// Summary renders the verdict as one line for history and status events.
func (v Verdict) Summary() string {
	issues := "none"
	if len(v.KeyIssues) > 0 {
		issues = strings.Join(v.KeyIssues, "; ")
	}
	return fmt.Sprintf("Review verdict: %s. Key issues: %s. Next action for W1: %s", v.Status, issues, v.NextActionForW1)
}

// ReviewInput is everything the reviewer sees.
type ReviewInput struct {
	Filename      string
	Task          string
	Anchor        string
	History       []llm.Message
	Files         map[string]string
	CoderResponse string
	Agent         llm.AgentConfig
}

// ReviewResult is the parsed verdict and the reviewer's full reply.
type ReviewResult struct {
	Verdict  Verdict
	FullText string
}

// Review asks the reviewer for a verdict on the coder's latest file.
// Fragments are emitted as assistant_chunk events tagged w2. A malformed
// verdict is returned as StatusUnknown, never as an error.
func (r *Runner) Review(ctx context.Context, in ReviewInput, emit event.Emitter) (ReviewResult, error) {
	log := r.logger.WithStage(string(event.StageReviewingTurn)).WithWorker(string(event.WorkerReviewer))
	log.Debug("review started", "filename", in.Filename, "agent", in.Agent.String())

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.System(ReviewSystemPrompt))
	msgs = append(msgs, r.Bound(in.History, anchorOr(in.Anchor, in.Task))...)
	msgs = append(msgs, llm.User(FormatReviewUser(in.Task, in.Filename, in.Files[in.Filename], in.Files, in.CoderResponse)))

	text, err := r.Complete(ctx, event.StageReviewingTurn, in.Agent, msgs, chunkEmitter(emit, event.WorkerReviewer))
	if err != nil {
		return ReviewResult{}, err
	}

	verdict := ParseVerdict(text)
	if verdict.Status == StatusUnknown {
		log.Warn("review verdict could not be parsed", "reason", verdict.NextActionForW1)
	}

	log.Debug("review finished", "status", string(verdict.Status), "issues", len(verdict.KeyIssues))
	return ReviewResult{Verdict: verdict, FullText: text}, nil
}

// ParseVerdict extracts a verdict from reviewer output.
//
// Output with no JSON yields ERROR_NO_JSON_FOUND; JSON that does not parse
// or lacks a required field yields ERROR_PARSING_JSON. A parsed status
// outside the known set becomes StatusUnknown with its issues kept.
func ParseVerdict(text string) Verdict {
	if !extract.HasCandidate(text) {
		return unknownVerdict(ErrNoJSONFound)
	}

	raw, ok := extract.JSONString(text)
	if !ok {
		return unknownVerdict(ErrParsingJSON)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return unknownVerdict(ErrParsingJSON)
	}

	status, ok := fields["status"].(string)
	if !ok {
		return unknownVerdict(ErrParsingJSON)
	}
	next, ok := fields["next_action_for_w1"].(string)
	if !ok {
		return unknownVerdict(ErrParsingJSON)
	}
	rawIssues, ok := fields["key_issues"].([]any)
	if !ok {
		return unknownVerdict(ErrParsingJSON)
	}
	issues := make([]string, 0, len(rawIssues))
	for _, issue := range rawIssues {
		s, ok := issue.(string)
		if !ok {
			return unknownVerdict(ErrParsingJSON)
		}
		issues = append(issues, s)
	}

	return Verdict{
		Status:          normalizeStatus(status),
		KeyIssues:       issues,
		NextActionForW1: next,
	}
}

func unknownVerdict(reason string) Verdict {
	return Verdict{Status: StatusUnknown, KeyIssues: []string{}, NextActionForW1: reason}
}

func normalizeStatus(s string) Status {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch Status(s) {
	case StatusApproved, StatusRevisionNeeded, StatusNeedsClarification:
		return Status(s)
	default:
		return StatusUnknown
	}
}
