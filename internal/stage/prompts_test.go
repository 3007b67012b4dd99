package stage

import (
	"strings"
	"testing"
)

func contains(s, substr string) bool { return strings.Contains(s, substr) }

func TestPromptsHaveNoStrayVerbs(t *testing.T) {
	filled := map[string]string{
		"scaffold":     FormatScaffoldSystem("react"),
		"codegen":      FormatCodegenSystem("react", "src/App.tsx", "tsx"),
		"codegen user": FormatCodegenUser("task", "src/App.tsx", "x"),
		"review user":  FormatReviewUser("task", "a.ts", "x", nil, "msg"),
		"install":      FormatInstallSystem("react", "npm"),
		"install user": FormatInstallUser("task", map[string]string{"a": "b"}, "", ""),
	}
	for name, s := range filled {
		t.Run(name, func(t *testing.T) {
			if strings.Contains(s, "%!") {
				t.Errorf("prompt has formatting errors: %q", s)
			}
		})
	}

	for name, s := range map[string]string{"refine": RefineSystemPrompt, "review": ReviewSystemPrompt} {
		if strings.Contains(s, "%s") {
			t.Errorf("%s prompt is sent verbatim but contains a format verb", name)
		}
	}
}

func TestFormatCodegenUser_NewFile(t *testing.T) {
	got := FormatCodegenUser("task", "src/App.tsx", "  \n")
	if !strings.Contains(got, "(file does not exist yet)") {
		t.Errorf("expected new-file note, got %q", got)
	}
}

func TestFormatInstallUser(t *testing.T) {
	got := FormatInstallUser("task", map[string]string{"b.ts": "B", "a.ts": "A"}, "", "")
	if strings.Index(got, "### a.ts") > strings.Index(got, "### b.ts") {
		t.Error("files should be listed in path order")
	}
	if !strings.Contains(got, "## Manifest (none)") || !strings.Contains(got, "(no manifest file)") {
		t.Errorf("missing manifest placeholder: %q", got)
	}
}

func TestFileList(t *testing.T) {
	if got := fileList(nil); got != "(none)" {
		t.Errorf("fileList(nil) = %q", got)
	}
	got := fileList(map[string]string{"z": "12", "a": ""})
	if got != "- a (0 bytes)\n- z (2 bytes)" {
		t.Errorf("fileList() = %q", got)
	}
}
