package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/codepair/internal/llm"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantFields []string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name: "negative retries",
			modify: func(c *Config) {
				c.Providers.OpenAI.MaxRetries = -1
			},
			wantFields: []string{"providers.openai.max_retries"},
		},
		{
			name: "bad base urls",
			modify: func(c *Config) {
				c.Providers.OpenAI.BaseURL = "ftp://example.com"
				c.Providers.Ollama.BaseURL = "http://"
			},
			wantFields: []string{"providers.openai.base_url", "providers.ollama.base_url"},
		},
		{
			name: "empty ollama binary",
			modify: func(c *Config) {
				c.Providers.Ollama.Binary = " "
			},
			wantFields: []string{"providers.ollama.binary"},
		},
		{
			name: "unknown agent provider",
			modify: func(c *Config) {
				c.Agents.Worker2 = llm.AgentConfig{Provider: "anthropic", Model: "x"}
			},
			wantFields: []string{"agents.worker2.provider"},
		},
		{
			name: "agent provider without model",
			modify: func(c *Config) {
				c.Agents.DebaterB = llm.AgentConfig{Provider: "openai"}
			},
			wantFields: []string{"agents.debater_b.model"},
		},
		{
			name: "empty agent is allowed",
			modify: func(c *Config) {
				c.Agents.Refiner = llm.AgentConfig{}
			},
		},
		{
			name: "max turns out of range",
			modify: func(c *Config) {
				c.Pipeline.MaxTurns = 51
			},
			wantFields: []string{"pipeline.max_turns"},
		},
		{
			name: "zero revisions and window",
			modify: func(c *Config) {
				c.Pipeline.MaxRevisionsPerTurn = 0
				c.Pipeline.HistoryWindow = 0
			},
			wantFields: []string{"pipeline.max_revisions_per_turn", "pipeline.history_window"},
		},
		{
			name: "escaping default filename",
			modify: func(c *Config) {
				c.Pipeline.DefaultFilename = "../App.tsx"
			},
			wantFields: []string{"pipeline.default_filename"},
		},
		{
			name: "absolute default filename",
			modify: func(c *Config) {
				c.Pipeline.DefaultFilename = "/etc/passwd"
			},
			wantFields: []string{"pipeline.default_filename"},
		},
		{
			name: "too many debate turns",
			modify: func(c *Config) {
				c.Pipeline.Debate.MaxTurnsPerAgent = 11
			},
			wantFields: []string{"pipeline.debate.max_turns_per_agent"},
		},
		{
			name: "server settings",
			modify: func(c *Config) {
				c.Server.Addr = ""
				c.Server.ShutdownTimeout = -time.Second
				c.Server.GinMode = "production"
			},
			wantFields: []string{"server.addr", "server.shutdown_timeout", "server.gin_mode"},
		},
		{
			name: "logging settings",
			modify: func(c *Config) {
				c.Logging.Level = "trace"
				c.Logging.MaxSizeMB = 0
				c.Logging.MaxBackups = -1
			},
			wantFields: []string{"logging.level", "logging.max_size_mb", "logging.max_backups"},
		},
		{
			name: "oversized log file",
			modify: func(c *Config) {
				c.Logging.MaxSizeMB = 2000
			},
			wantFields: []string{"logging.max_size_mb"},
		},
		{
			name: "bad nats url",
			modify: func(c *Config) {
				c.Events.NATSURL = "http://localhost:4222"
			},
			wantFields: []string{"events.nats_url"},
		},
		{
			name: "valid nats url",
			modify: func(c *Config) {
				c.Events.NATSURL = "nats://localhost:4222"
			},
		},
		{
			name: "wildcard subject prefix",
			modify: func(c *Config) {
				c.Events.SubjectPrefix = "codepair.>"
			},
			wantFields: []string{"events.subject_prefix"},
		},
		{
			name: "nested subject prefix",
			modify: func(c *Config) {
				c.Events.SubjectPrefix = "team.codepair"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Validate() fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "pipeline.max_turns", Value: 0, Message: "must be between 1 and 50"}}
	if got := single.Error(); got != "pipeline.max_turns: must be between 1 and 50 (got: 0)" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := multi.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(got, "1. a: bad (got: 1)") || !strings.Contains(got, "2. b: worse (got: 2)") {
		t.Errorf("Error() missing entries: %q", got)
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}
