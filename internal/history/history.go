// Package history bounds the conversation context sent with each stage call.
package history

import (
	"strings"

	"github.com/Iron-Ham/codepair/internal/llm"
)

// DefaultWindow is the number of most recent messages Bound keeps.
const DefaultWindow = 6

// Bound returns a view of msgs holding at most DefaultWindow+2 messages:
// the first message, the first message whose content contains anchor, and
// the most recent DefaultWindow messages not already kept. Messages keep
// their original order. msgs is never modified.
func Bound(msgs []llm.Message, anchor string) []llm.Message {
	return BoundN(msgs, anchor, DefaultWindow)
}

// BoundN is Bound with an explicit recent-message window.
func BoundN(msgs []llm.Message, anchor string, window int) []llm.Message {
	if len(msgs) == 0 {
		return []llm.Message{}
	}
	if window < 0 {
		window = 0
	}

	keep := make([]bool, len(msgs))
	keep[0] = true

	if anchor != "" {
		for i, m := range msgs {
			if strings.Contains(m.Content, anchor) {
				keep[i] = true
				break
			}
		}
	}

	for i, added := len(msgs)-1, 0; i >= 0 && added < window; i-- {
		if !keep[i] {
			keep[i] = true
			added++
		}
	}

	out := make([]llm.Message, 0, window+2)
	for i, m := range msgs {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}
