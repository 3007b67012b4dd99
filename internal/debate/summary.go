package debate

import (
	"encoding/json"

	"github.com/Iron-Ham/codepair/internal/extract"
)

// FallbackPrefix starts SummaryText when the summarizer output could not be
// used.
const FallbackPrefix = "Error parsing summary. Raw output:\n"

// FallbackSummary wraps raw summarizer output (or an error description) in
// a summary that demands resolution and carries no plan.
func FallbackSummary(raw string) Summary {
	return Summary{
		SummaryText:        FallbackPrefix + raw,
		Options:            []string{},
		RequiresResolution: true,
	}
}

// ParseSummary extracts a Summary from summarizer output. summaryText must
// be a string, requiresResolution a boolean and options an array; any
// violation returns false. Non-string options are dropped and a non-string
// agreedPlan is ignored.
func ParseSummary(text string) (Summary, bool) {
	raw, ok := extract.JSONString(text)
	if !ok {
		return Summary{}, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Summary{}, false
	}

	summaryText, ok := fields["summaryText"].(string)
	if !ok {
		return Summary{}, false
	}
	requiresResolution, ok := fields["requiresResolution"].(bool)
	if !ok {
		return Summary{}, false
	}
	rawOptions, ok := fields["options"].([]any)
	if !ok {
		return Summary{}, false
	}

	options := make([]string, 0, len(rawOptions))
	for _, opt := range rawOptions {
		if s, ok := opt.(string); ok {
			options = append(options, s)
		}
	}
	plan, _ := fields["agreedPlan"].(string)

	return Summary{
		SummaryText:        summaryText,
		AgreedPlan:         plan,
		Options:            options,
		RequiresResolution: requiresResolution,
	}, true
}
