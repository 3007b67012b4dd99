package llm

import (
	"context"
	"errors"
	"io"
	"testing"
)

type sliceStream struct {
	chunks []string
	err    error
	closed int
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed++
	return nil
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name       string
		chunks     []string
		err        error
		wantText   string
		wantChunks int
		wantErr    bool
	}{
		{name: "joins chunks", chunks: []string{"Hel", "lo", " world"}, wantText: "Hello world", wantChunks: 3},
		{name: "skips empty", chunks: []string{"a", "", "b"}, wantText: "ab", wantChunks: 2},
		{name: "empty stream", wantText: ""},
		{name: "partial then error", chunks: []string{"par"}, err: errors.New("reset"), wantText: "par", wantChunks: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &sliceStream{chunks: tt.chunks, err: tt.err}
			var seen int
			text, err := Collect(context.Background(), stream, func(string) { seen++ })

			if (err != nil) != tt.wantErr {
				t.Fatalf("Collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if text != tt.wantText {
				t.Errorf("Collect() text = %q, want %q", text, tt.wantText)
			}
			if seen != tt.wantChunks {
				t.Errorf("onChunk called %d times, want %d", seen, tt.wantChunks)
			}
			if stream.closed == 0 {
				t.Error("stream was not closed")
			}
		})
	}
}

func TestCollect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, &sliceStream{chunks: []string{"x"}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAgentConfig(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		tests := []struct {
			cfg     AgentConfig
			wantErr bool
		}{
			{cfg: AgentConfig{Provider: "openai", Model: "gpt-4o"}},
			{cfg: AgentConfig{Provider: "OLLAMA", Model: "llama3"}},
			{cfg: AgentConfig{Provider: "anthropic", Model: "x"}, wantErr: true},
			{cfg: AgentConfig{Provider: "openai", Model: "  "}, wantErr: true},
		}
		for _, tt := range tests {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			}
		}
	})

	t.Run("or", func(t *testing.T) {
		got := AgentConfig{Model: "gpt-4o-mini"}.Or(AgentConfig{Provider: "openai", Model: "gpt-4o", APIKey: "k"})
		want := AgentConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}
		if got != want {
			t.Errorf("Or() = %+v, want %+v", got, want)
		}
	})

	t.Run("string hides key", func(t *testing.T) {
		s := AgentConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk-secret"}.String()
		if s != "openai/gpt-4o" {
			t.Errorf("String() = %q", s)
		}
	})
}
