package stage

import (
	"context"
	"strings"
	"testing"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/testutil"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantStatus Status
		wantIssues int
		wantNext   string
	}{
		{
			name:       "approved in fence",
			text:       "```json\n{\"status\":\"APPROVED\",\"key_issues\":[],\"next_action_for_w1\":\"none\"}\n```",
			wantStatus: StatusApproved,
			wantNext:   "none",
		},
		{
			name:       "revision needed with prose",
			text:       `Looks close. {"status": "REVISION_NEEDED", "key_issues": ["missing reset"], "next_action_for_w1": "add reset"} Thanks.`,
			wantStatus: StatusRevisionNeeded,
			wantIssues: 1,
			wantNext:   "add reset",
		},
		{
			name:       "lowercase spaced status normalized",
			text:       `{"status": "needs clarification", "key_issues": ["a", "b"], "next_action_for_w1": "ask"}`,
			wantStatus: StatusNeedsClarification,
			wantIssues: 2,
			wantNext:   "ask",
		},
		{
			name:       "unrecognized status",
			text:       `{"status": "LGTM", "key_issues": ["x"], "next_action_for_w1": "ship"}`,
			wantStatus: StatusUnknown,
			wantIssues: 1,
			wantNext:   "ship",
		},
		{
			name:       "no json",
			text:       "The code looks great to me!",
			wantStatus: StatusUnknown,
			wantNext:   ErrNoJSONFound,
		},
		{
			name:       "truncated json",
			text:       "```json\n{\"status\": \"APPROVED\", \"key_issues\": [\n```",
			wantStatus: StatusUnknown,
			wantNext:   ErrParsingJSON,
		},
		{
			name:       "missing field",
			text:       `{"status": "APPROVED", "key_issues": []}`,
			wantStatus: StatusUnknown,
			wantNext:   ErrParsingJSON,
		},
		{
			name:       "issues not strings",
			text:       `{"status": "APPROVED", "key_issues": [1], "next_action_for_w1": ""}`,
			wantStatus: StatusUnknown,
			wantNext:   ErrParsingJSON,
		},
		{
			name:       "array instead of object",
			text:       `[{"status": "APPROVED"}]`,
			wantStatus: StatusUnknown,
			wantNext:   ErrParsingJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.text)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.KeyIssues) != tt.wantIssues {
				t.Errorf("KeyIssues = %v, want %d issues", got.KeyIssues, tt.wantIssues)
			}
			if got.KeyIssues == nil {
				t.Error("KeyIssues must never be nil")
			}
			if got.NextActionForW1 != tt.wantNext {
				t.Errorf("NextActionForW1 = %q, want %q", got.NextActionForW1, tt.wantNext)
			}
		})
	}
}

func TestVerdict_Outcomes(t *testing.T) {
	tests := []struct {
		status   Status
		advances bool
		revises  bool
	}{
		{StatusApproved, true, false},
		{StatusRevisionNeeded, false, true},
		{StatusNeedsClarification, false, true},
		{StatusUnknown, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			v := Verdict{Status: tt.status}
			if v.Advances() != tt.advances || v.Revises() != tt.revises {
				t.Errorf("Advances/Revises = %v/%v, want %v/%v", v.Advances(), v.Revises(), tt.advances, tt.revises)
			}
		})
	}
}

func TestVerdict_Summary(t *testing.T) {
	v := Verdict{Status: StatusRevisionNeeded, KeyIssues: []string{"a", "b"}, NextActionForW1: "fix"}
	want := "Review verdict: REVISION_NEEDED. Key issues: a; b. Next action for W1: fix"
	if got := v.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if got := (Verdict{Status: StatusApproved}).Summary(); !strings.Contains(got, "Key issues: none") {
		t.Errorf("Summary() without issues = %q", got)
	}
}

func TestReview(t *testing.T) {
	reply := "```json\n{\"status\":\"APPROVED\",\"key_issues\":[],\"next_action_for_w1\":\"none\"}\n```"
	r, provider := newTestRunner(t, testutil.Text(reply))
	rec := &testutil.Recorder{}

	result, err := r.Review(context.Background(), ReviewInput{
		Filename:      "src/App.tsx",
		Task:          "Build the app",
		Files:         map[string]string{"src/App.tsx": "const App = () => null;", "package.json": "{}"},
		CoderResponse: "I wrote the component.",
		Agent:         testutil.Agent(testModel),
	}, rec.Emit)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !result.Verdict.Advances() {
		t.Errorf("expected approval, got %+v", result.Verdict)
	}
	if got := chunkText(rec.Events, event.WorkerReviewer); got != reply {
		t.Errorf("w2 chunks = %q", got)
	}

	msgs := provider.Requests()[0].Messages
	if msgs[0].Content != ReviewSystemPrompt {
		t.Error("reviewer did not receive the review system prompt")
	}
	user := msgs[len(msgs)-1].Content
	for _, want := range []string{"const App = () => null;", "- package.json (2 bytes)", "I wrote the component."} {
		if !strings.Contains(user, want) {
			t.Errorf("review prompt missing %q", want)
		}
	}
}
