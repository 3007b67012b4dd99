package extract

import (
	"testing"
)

func TestJSONString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "json fence inside prose",
			input:  "Here is my verdict:\n```json\n{\"status\": \"APPROVED\"}\n```\nThanks!",
			want:   `{"status": "APPROVED"}`,
			wantOK: true,
		},
		{
			name:   "untagged fence with array",
			input:  "```\n[\"react\", \"zustand\"]\n```",
			want:   `["react", "zustand"]`,
			wantOK: true,
		},
		{
			name:   "whole text array",
			input:  "  [\"a\"]\n",
			want:   `["a"]`,
			wantOK: true,
		},
		{
			name:   "braces inside prose",
			input:  `Sure! {"summaryText": "ok", "options": []} hope that helps`,
			want:   `{"summaryText": "ok", "options": []}`,
			wantOK: true,
		},
		{
			name:   "malformed fence poisons brace span",
			input:  "```json\n{\"a\": }\n```\nActually: {\"a\": 1}",
			wantOK: false,
		},
		{
			name:   "smart quotes normalized",
			input:  "{“status”: “APPROVED”}",
			want:   `{"status": "APPROVED"}`,
			wantOK: true,
		},
		{name: "balanced but malformed", input: `{"a":}`, wantOK: false},
		{name: "no braces", input: "The code looks great, approved.", wantOK: false},
		{name: "reversed braces", input: "} nothing {", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "tsx fence is ignored", input: "```tsx\n{x}\n```", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := JSONString(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("JSONString() ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("JSONString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONString_IdempotentOnCleanJSON(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`[1,2,3]`,
		"{\n  \"status\": \"REVISION_NEEDED\",\n  \"key_issues\": [\"missing key prop\"],\n  \"next_action_for_w1\": \"add keys\"\n}",
		"  [\n  {\"type\": \"folder\", \"path\": \"src\"}\n]  \n",
		`{}`,
	}

	for _, in := range inputs {
		got, ok := JSONString(in)
		if !ok {
			t.Errorf("JSONString(%q) failed", in)
			continue
		}
		again, _ := JSONString(got)
		if again != got {
			t.Errorf("not idempotent: %q then %q", got, again)
		}
		if want := trimmed(in); got != want {
			t.Errorf("JSONString(%q) = %q, want trimmed input", in, got)
		}
	}
}

func trimmed(s string) string {
	got, _ := FromWhole(s)
	return got
}

func TestStrategiesIndependently(t *testing.T) {
	input := "prefix {\"k\": true} suffix"

	if _, ok := FromFence(input); ok {
		t.Error("FromFence should not match unfenced text")
	}
	if _, ok := FromWhole(input); ok {
		t.Error("FromWhole should not match text with prose")
	}
	if got, ok := FromBraces(input); !ok || got != `{"k": true}` {
		t.Errorf("FromBraces() = %q, %v", got, ok)
	}
}

func TestHasCandidate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"no json here", false},
		{"```json\nnot json\n```", true},
		{`{"a":}`, true},
		{"[broken", false},
		{"[1, 2", false},
		{"[1,]", true},
		{"closing } before opening {", false},
	}

	for _, tt := range tests {
		if got := HasCandidate(tt.input); got != tt.want {
			t.Errorf("HasCandidate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Status string `json:"status"`
	}

	found, err := Decode("verdict: {\"status\":\"APPROVED\"}", &v)
	if !found || err != nil || v.Status != "APPROVED" {
		t.Errorf("Decode() = %v, %v, %+v", found, err, v)
	}

	found, err = Decode("nothing", &v)
	if found || err != nil {
		t.Errorf("Decode(no json) = %v, %v", found, err)
	}

	var arr []string
	found, err = Decode(`{"not":"an array"}`, &arr)
	if !found || err == nil {
		t.Errorf("Decode(type mismatch) = %v, %v; want found with error", found, err)
	}
}
