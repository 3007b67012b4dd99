package debate

import "github.com/Iron-Ham/codepair/internal/llm"

// SessionStatus represents the current state of a debate session.
type SessionStatus string

const (
	// StatusPending indicates the debate has been seeded but nobody has spoken.
	StatusPending SessionStatus = "pending"

	// StatusActive indicates at least one debater turn has been recorded.
	StatusActive SessionStatus = "active"

	// StatusResolved indicates a summary has been attached.
	StatusResolved SessionStatus = "resolved"
)

// Participant names used in the transcript and in debate events.
const (
	NameModerator = "moderator"
	NameDebaterA  = "debater_a"
	NameDebaterB  = "debater_b"
)

// DefaultMaxTurnsPerAgent is the number of turns each debater takes when
// Input.MaxTurnsPerAgent is not positive.
const DefaultMaxTurnsPerAgent = 2

// Summary is the summarizer's structured decision.
type Summary struct {
	SummaryText        string   `json:"summaryText"`
	AgreedPlan         string   `json:"agreedPlan,omitempty"`
	Options            []string `json:"options"`
	RequiresResolution bool     `json:"requiresResolution"`
}

// Resolved reports whether the debate produced a plan that can be acted on
// without further input.
func (s Summary) Resolved() bool {
	return !s.RequiresResolution && s.AgreedPlan != ""
}

// Input configures one debate.
type Input struct {
	// Topic is the refined task the debaters plan for.
	Topic   string
	History []llm.Message

	DebaterA   llm.AgentConfig
	DebaterB   llm.AgentConfig
	Summarizer llm.AgentConfig

	MaxTurnsPerAgent int
}

// Result is the summary plus the transcript it was derived from.
type Result struct {
	Summary    Summary
	Transcript []llm.Message
	// Parsed is false when Summary is the fallback.
	Parsed bool
	// Turns is the number of debater turns that completed.
	Turns int
}
