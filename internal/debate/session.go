package debate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Iron-Ham/codepair/internal/llm"
)

// Session holds the shared transcript of one debate.
type Session struct {
	mu      sync.Mutex
	topic   string
	status  SessionStatus
	entries []llm.Message
	turns   int
	summary *Summary
}

// NewSession creates a session seeded with a moderator message stating
// topic. The session starts in Pending status.
func NewSession(topic string) *Session {
	return &Session{
		topic:  topic,
		status: StatusPending,
		entries: []llm.Message{{
			Role:    llm.RoleUser,
			Name:    NameModerator,
			Content: moderatorMessage(topic),
		}},
	}
}

func moderatorMessage(topic string) string {
	return "Moderator: The task under discussion is:\n\n" + topic + "\n\nDebate the best implementation plan for this task."
}

// Topic returns the debate topic.
func (s *Session) Topic() string {
	return s.topic
}

// Status returns the current session status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Record appends one debater turn. The session must not be resolved.
func (s *Session) Record(agent, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusResolved {
		return fmt.Errorf("debate: session already resolved")
	}
	if agent != NameDebaterA && agent != NameDebaterB {
		return fmt.Errorf("debate: %q is not a participant", agent)
	}

	s.entries = append(s.entries, llm.Message{Role: llm.RoleAssistant, Name: agent, Content: text})
	s.turns++
	s.status = StatusActive
	return nil
}

// Resolve attaches the final summary.
func (s *Session) Resolve(summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusResolved {
		return fmt.Errorf("debate: session already resolved")
	}
	s.summary = &summary
	s.status = StatusResolved
	return nil
}

// Summary returns the attached summary, if any.
func (s *Session) Summary() (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return Summary{}, false
	}
	return *s.summary, true
}

// Transcript returns a chronological copy of every entry, moderator first.
func (s *Session) Transcript() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]llm.Message, len(s.entries))
	copy(result, s.entries)
	return result
}

// Turns returns the number of recorded debater turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// ViewFor renders the transcript from agent's point of view: its own turns
// become assistant messages and everyone else's become user messages
// prefixed with the speaker's name.
func (s *Session) ViewFor(agent string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]llm.Message, 0, len(s.entries))
	for _, m := range s.entries {
		if m.Name == agent {
			view = append(view, llm.Assistant(m.Content))
			continue
		}
		content := m.Content
		if m.Name != NameModerator {
			content = displayName(m.Name) + ": " + content
		}
		view = append(view, llm.User(content))
	}
	return view
}

// Render flattens the transcript into one labelled block of text for the
// summarizer.
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for i, m := range s.entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if m.Name == NameModerator {
			sb.WriteString(m.Content)
			continue
		}
		fmt.Fprintf(&sb, "%s:\n%s", displayName(m.Name), m.Content)
	}
	return sb.String()
}

func displayName(name string) string {
	switch name {
	case NameDebaterA:
		return "Debater A"
	case NameDebaterB:
		return "Debater B"
	case NameModerator:
		return "Moderator"
	default:
		return name
	}
}
