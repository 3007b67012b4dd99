package pipeline

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
)

func TestRequest_JSON(t *testing.T) {
	body := `{
		"prompt": "todo app",
		"refinerConfig": {"provider": "openai", "model": "gpt-4o", "apiKey": "sk-test"},
		"worker1Config": {"provider": "ollama", "model": "llama3"},
		"worker2Config": {"provider": "ollama", "model": "qwen2.5-coder"},
		"projectType": "react",
		"filename": "src/Todo.tsx",
		"maxTurns": 3,
		"debate": {"enabled": true, "maxTurnsPerAgent": 1},
		"scaffold": true
	}`

	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if req.RefinerConfig.APIKey != "sk-test" || req.Worker2Config.Model != "qwen2.5-coder" {
		t.Errorf("agent configs not decoded: %+v", req)
	}
	if !req.DebateEnabled() || req.Debate.MaxTurnsPerAgent != 1 || !req.Scaffold {
		t.Errorf("options not decoded: %+v", req)
	}
	if req.Filename != "src/Todo.tsx" || req.MaxTurns != 3 {
		t.Errorf("fields not decoded: %+v", req)
	}
}

func TestRequest_WithDefaults(t *testing.T) {
	d := DefaultDefaults()
	d.Refiner = llm.AgentConfig{Provider: "openai", Model: "gpt-4o-mini"}
	d.Worker1 = llm.AgentConfig{Provider: "openai", Model: "gpt-4o"}
	d.Worker2 = llm.AgentConfig{Provider: "ollama", Model: "llama3"}

	t.Run("fills empty fields", func(t *testing.T) {
		got := Request{Prompt: "x"}.WithDefaults(d)
		if got.Filename != DefaultFilename || got.ProjectType != DefaultProjectType || got.MaxTurns != DefaultMaxTurns {
			t.Errorf("scalar defaults not applied: %+v", got)
		}
		if got.Worker1Config != d.Worker1 || got.RefinerConfig != d.Refiner {
			t.Errorf("agent defaults not applied: %+v", got)
		}
		if got.Debate != nil {
			t.Error("debate must stay disabled")
		}
	})

	t.Run("request wins", func(t *testing.T) {
		req := Request{Prompt: "x", Filename: "main.py", MaxTurns: 2, Worker1Config: llm.AgentConfig{Model: "custom"}}
		got := req.WithDefaults(d)
		if got.Filename != "main.py" || got.MaxTurns != 2 {
			t.Errorf("request fields overwritten: %+v", got)
		}
		if got.Worker1Config.Model != "custom" || got.Worker1Config.Provider != "openai" {
			t.Errorf("partial agent config not merged: %+v", got.Worker1Config)
		}
	})

	t.Run("debate roles fall back to workers", func(t *testing.T) {
		req := Request{Prompt: "x", Debate: &DebateOptions{Enabled: true}}
		got := req.WithDefaults(d)
		if got.Debate.DebaterA != d.Worker1 || got.Debate.DebaterB != d.Worker2 || got.Debate.Summarizer != d.Refiner {
			t.Errorf("debate roles = %+v", got.Debate)
		}
		if got.Debate.MaxTurnsPerAgent != DefaultDebateTurnsPerAgent {
			t.Errorf("MaxTurnsPerAgent = %d", got.Debate.MaxTurnsPerAgent)
		}
		if req.Debate.DebaterA.Model != "" {
			t.Error("WithDefaults must not modify the caller's DebateOptions")
		}
	})

	t.Run("configured debate and scaffold", func(t *testing.T) {
		dd := d
		dd.DebateEnabled = true
		dd.ScaffoldEnabled = true
		got := Request{Prompt: "x"}.WithDefaults(dd)
		if !got.DebateEnabled() || !got.Scaffold {
			t.Errorf("config switches not applied: %+v", got)
		}
	})
}

func TestRequest_Validate(t *testing.T) {
	valid := func() Request {
		return Request{
			Prompt:        "todo",
			RefinerConfig: llm.AgentConfig{Provider: "openai", Model: "gpt-4o"},
			Worker1Config: llm.AgentConfig{Provider: "openai", Model: "gpt-4o"},
			Worker2Config: llm.AgentConfig{Provider: "ollama", Model: "llama3"},
			Filename:      "src/App.tsx",
			MaxTurns:      6,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{name: "valid", mutate: func(*Request) {}},
		{name: "empty prompt", mutate: func(r *Request) { r.Prompt = "" }, wantField: "prompt"},
		{name: "unknown provider", mutate: func(r *Request) { r.Worker1Config.Provider = "anthropic" }, wantField: "worker1Config.provider"},
		{name: "missing model", mutate: func(r *Request) { r.Worker2Config.Model = " " }, wantField: "worker2Config.model"},
		{name: "zero turns", mutate: func(r *Request) { r.MaxTurns = 0 }, wantField: "maxTurns"},
		{name: "too many turns", mutate: func(r *Request) { r.MaxTurns = 51 }, wantField: "maxTurns"},
		{name: "max turns boundary", mutate: func(r *Request) { r.MaxTurns = 50 }},
		{name: "empty filename", mutate: func(r *Request) { r.Filename = "" }, wantField: "filename"},
		{
			name: "debate summarizer invalid",
			mutate: func(r *Request) {
				r.Debate = &DebateOptions{Enabled: true, DebaterA: r.Worker1Config, DebaterB: r.Worker2Config}
			},
			wantField: "debate.summarizer.provider",
		},
		{
			name:   "disabled debate not validated",
			mutate: func(r *Request) { r.Debate = &DebateOptions{Enabled: false} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *errors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Error("validation errors should match ErrInvalidInput")
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to event.Stage
		want     bool
	}{
		{event.StageInitial, event.StageRefiningPrompt, true},
		{event.StageInitial, event.StageCodingTurn, false},
		{event.StageRefiningPrompt, event.StageDebatingPlan, true},
		{event.StageRefiningPrompt, event.StageCodingTurn, true},
		{event.StageCodingTurn, event.StageReviewingTurn, true},
		{event.StageCodingTurn, event.StageInstallingDeps, false},
		{event.StageReviewingTurn, event.StageProcessingTurn, true},
		{event.StageProcessingTurn, event.StageCodingTurn, true},
		{event.StageProcessingTurn, event.StageInstallingDeps, true},
		{event.StageInstallingDeps, event.StageDone, true},
		{event.StageScaffolding, event.StageError, true},
		{event.StageDone, event.StageCodingTurn, false},
		{event.StageError, event.StageError, false},
		{event.StageDone, event.StageError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"→"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCollaborationState_SetStage(t *testing.T) {
	st := NewCollaborationState(Request{Prompt: "p", MaxTurns: 2, Filename: "a.ts"})

	steps := []struct {
		stage  event.Stage
		worker event.Worker
	}{
		{event.StageRefiningPrompt, event.WorkerNone},
		{event.StageCodingTurn, event.WorkerCoder},
		{event.StageReviewingTurn, event.WorkerReviewer},
		{event.StageProcessingTurn, event.WorkerNone},
		{event.StageCodingTurn, event.WorkerCoder},
		{event.StageError, event.WorkerNone},
	}
	for _, step := range steps {
		if err := st.setStage(step.stage); err != nil {
			t.Fatalf("setStage(%s) failed: %v", step.stage, err)
		}
		if st.CurrentWorker != step.worker {
			t.Errorf("after %s CurrentWorker = %q, want %q", step.stage, st.CurrentWorker, step.worker)
		}
	}

	if err := st.setStage(event.StageDone); err == nil {
		t.Error("expected error leaving a terminal stage")
	}
}

func TestCollaborationState_AddPackages(t *testing.T) {
	st := NewCollaborationState(Request{})
	st.addPackages("npm install a", "npm install b")
	st.addPackages("npm install b", "npm install c")

	want := []string{"npm install a", "npm install b", "npm install c"}
	if !reflect.DeepEqual(st.RequiredPackages, want) {
		t.Errorf("RequiredPackages = %v, want %v", st.RequiredPackages, want)
	}
}

func TestCollaborationState_FilesSnapshot(t *testing.T) {
	st := NewCollaborationState(Request{})
	st.ProjectFiles["a"] = "1"
	snap := st.filesSnapshot()
	st.ProjectFiles["a"] = "2"

	if snap["a"] != "1" {
		t.Error("snapshot must not alias live state")
	}
}

func TestPipeline_Prepare(t *testing.T) {
	p := New(nil, WithDefaults(Defaults{
		Filename: "index.ts",
		MaxTurns: 3,
		Refiner:  llm.AgentConfig{Provider: "ollama", Model: "m"},
		Worker1:  llm.AgentConfig{Provider: "ollama", Model: "m"},
		Worker2:  llm.AgentConfig{Provider: "ollama", Model: "m"},
	}))

	req, err := p.Prepare(Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if req.RunID == "" {
		t.Error("RunID should be generated")
	}
	if req.Filename != "index.ts" || req.MaxTurns != 3 {
		t.Errorf("defaults not applied: %+v", req)
	}

	again, _ := p.Prepare(Request{Prompt: "x", RunID: "fixed"})
	if again.RunID != "fixed" {
		t.Errorf("explicit RunID replaced: %q", again.RunID)
	}
}
