package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/codepair/internal/history"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/pipeline"
)

// EnvPrefix is prepended to every environment override, e.g.
// CODEPAIR_PIPELINE_MAX_TURNS.
const EnvPrefix = "CODEPAIR"

// Config holds all configuration for codepair
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Agents    AgentsConfig    `mapstructure:"agents" yaml:"agents"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// ProvidersConfig holds backend credentials and endpoints shared by all agents
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	Ollama OllamaConfig `mapstructure:"ollama" yaml:"ollama"`
}

// OpenAIConfig configures the OpenAI-compatible backend
type OpenAIConfig struct {
	// APIKey is used when a request's agent config carries none.
	// OPENAI_API_KEY is consulted after this.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// BaseURL overrides the API endpoint (for proxies and compatible servers)
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// MaxRetries is the SDK retry budget per request (default: 2)
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// OllamaConfig configures the local Ollama runtime
type OllamaConfig struct {
	// BaseURL is the Ollama HTTP endpoint (default: "http://localhost:11434")
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Binary is the CLI used for model discovery (default: "ollama")
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// AgentsConfig holds the agent each role uses when a request leaves it empty.
// Debate roles that are unset fall back to the workers and the refiner.
type AgentsConfig struct {
	Refiner    llm.AgentConfig `mapstructure:"refiner" yaml:"refiner"`
	Worker1    llm.AgentConfig `mapstructure:"worker1" yaml:"worker1"`
	Worker2    llm.AgentConfig `mapstructure:"worker2" yaml:"worker2"`
	DebaterA   llm.AgentConfig `mapstructure:"debater_a" yaml:"debater_a"`
	DebaterB   llm.AgentConfig `mapstructure:"debater_b" yaml:"debater_b"`
	Summarizer llm.AgentConfig `mapstructure:"summarizer" yaml:"summarizer"`
}

// PipelineConfig controls collaboration runs
type PipelineConfig struct {
	// MaxTurns is used when a request does not set maxTurns (default: 6)
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
	// MaxRevisionsPerTurn bounds consecutive revision verdicts in one turn (default: 5)
	MaxRevisionsPerTurn int `mapstructure:"max_revisions_per_turn" yaml:"max_revisions_per_turn"`
	// DefaultFilename is the file the coder writes when none is given (default: "src/App.tsx")
	DefaultFilename string `mapstructure:"default_filename" yaml:"default_filename"`
	// ProjectType is the project hint passed to prompts (default: "react")
	ProjectType string `mapstructure:"project_type" yaml:"project_type"`
	// HistoryWindow is how many recent history messages each stage sees (default: 6)
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`
	// ApplyAgreedPlan appends a resolved debate plan to the coding task (default: true)
	ApplyAgreedPlan bool `mapstructure:"apply_agreed_plan" yaml:"apply_agreed_plan"`

	Debate   DebateConfig   `mapstructure:"debate" yaml:"debate"`
	Scaffold ScaffoldConfig `mapstructure:"scaffold" yaml:"scaffold"`
}

// DebateConfig controls the optional planning debate
type DebateConfig struct {
	// Enabled runs a debate for requests that do not say otherwise (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// MaxTurnsPerAgent is the number of turns each debater takes (default: 2)
	MaxTurnsPerAgent int `mapstructure:"max_turns_per_agent" yaml:"max_turns_per_agent"`
}

// ScaffoldConfig controls the optional scaffolding stage
type ScaffoldConfig struct {
	// Enabled generates an initial project layout before coding (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig controls the HTTP server started by `codepair serve`
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `mapstructure:"addr" yaml:"addr"`
	// ReadHeaderTimeout bounds slow request headers (default: 10s)
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	// ShutdownTimeout is how long in-flight streams get on shutdown (default: 15s)
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// GinMode is "release", "debug" or "test" (default: "release")
	GinMode string `mapstructure:"gin_mode" yaml:"gin_mode"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty means <config dir>/logs and "-" means
	// stderr. Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// EventsConfig controls where pipeline events are mirrored besides the
// client stream
type EventsConfig struct {
	// NATSURL enables publishing every event to NATS. Empty disables it.
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
	// SubjectPrefix is the first subject token (default: "codepair")
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	// TranscriptDir, when set, receives one JSONL transcript per run
	TranscriptDir string `mapstructure:"transcript_dir" yaml:"transcript_dir"`
}

// TracingConfig controls OpenTelemetry spans
type TracingConfig struct {
	// Enabled exports run and stage spans to stderr (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	defaultAgent := llm.AgentConfig{Provider: llm.ProviderOllama, Model: "llama3.1"}
	return &Config{
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				MaxRetries: 2,
			},
			Ollama: OllamaConfig{
				BaseURL: llm.DefaultOllamaURL,
				Binary:  "ollama",
			},
		},
		Agents: AgentsConfig{
			Refiner: defaultAgent,
			Worker1: defaultAgent,
			Worker2: defaultAgent,
			// Debate roles stay empty and fall back to the workers
		},
		Pipeline: PipelineConfig{
			MaxTurns:            pipeline.DefaultMaxTurns,
			MaxRevisionsPerTurn: pipeline.DefaultMaxRevisionsPerTurn,
			DefaultFilename:     pipeline.DefaultFilename,
			ProjectType:         pipeline.DefaultProjectType,
			HistoryWindow:       history.DefaultWindow,
			ApplyAgreedPlan:     true,
			Debate: DebateConfig{
				Enabled:          false,
				MaxTurnsPerAgent: pipeline.DefaultDebateTurnsPerAgent,
			},
			Scaffold: ScaffoldConfig{
				Enabled: false,
			},
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			GinMode:           "release",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Events: EventsConfig{
			NATSURL:       "",
			SubjectPrefix: "codepair",
			TranscriptDir: "",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Provider defaults
	v.SetDefault("providers.openai.api_key", defaults.Providers.OpenAI.APIKey)
	v.SetDefault("providers.openai.base_url", defaults.Providers.OpenAI.BaseURL)
	v.SetDefault("providers.openai.max_retries", defaults.Providers.OpenAI.MaxRetries)
	v.SetDefault("providers.ollama.base_url", defaults.Providers.Ollama.BaseURL)
	v.SetDefault("providers.ollama.binary", defaults.Providers.Ollama.Binary)

	// Agent defaults
	for role, agent := range defaults.Agents.byRole() {
		v.SetDefault("agents."+role+".provider", agent.Provider)
		v.SetDefault("agents."+role+".model", agent.Model)
	}

	// Pipeline defaults
	v.SetDefault("pipeline.max_turns", defaults.Pipeline.MaxTurns)
	v.SetDefault("pipeline.max_revisions_per_turn", defaults.Pipeline.MaxRevisionsPerTurn)
	v.SetDefault("pipeline.default_filename", defaults.Pipeline.DefaultFilename)
	v.SetDefault("pipeline.project_type", defaults.Pipeline.ProjectType)
	v.SetDefault("pipeline.history_window", defaults.Pipeline.HistoryWindow)
	v.SetDefault("pipeline.apply_agreed_plan", defaults.Pipeline.ApplyAgreedPlan)
	v.SetDefault("pipeline.debate.enabled", defaults.Pipeline.Debate.Enabled)
	v.SetDefault("pipeline.debate.max_turns_per_agent", defaults.Pipeline.Debate.MaxTurnsPerAgent)
	v.SetDefault("pipeline.scaffold.enabled", defaults.Pipeline.Scaffold.Enabled)

	// Server defaults
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.read_header_timeout", defaults.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	v.SetDefault("server.gin_mode", defaults.Server.GinMode)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	// Events defaults
	v.SetDefault("events.nats_url", defaults.Events.NATSURL)
	v.SetDefault("events.subject_prefix", defaults.Events.SubjectPrefix)
	v.SetDefault("events.transcript_dir", defaults.Events.TranscriptDir)

	// Tracing defaults
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
}

// BindEnv makes every key overridable from CODEPAIR_* environment
// variables, with dots replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for a specific viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codepair")
	}
	// Fall back to ~/.config/codepair
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codepair"
	}
	return filepath.Join(home, ".config", "codepair")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// byRole maps config keys to agent configs.
func (a AgentsConfig) byRole() map[string]llm.AgentConfig {
	return map[string]llm.AgentConfig{
		"refiner":    a.Refiner,
		"worker1":    a.Worker1,
		"worker2":    a.Worker2,
		"debater_a":  a.DebaterA,
		"debater_b":  a.DebaterB,
		"summarizer": a.Summarizer,
	}
}

// FactoryConfig returns the provider settings for llm.NewFactory.
func (c *Config) FactoryConfig() llm.FactoryConfig {
	return llm.FactoryConfig{
		OpenAIAPIKey:     c.Providers.OpenAI.APIKey,
		OpenAIBaseURL:    c.Providers.OpenAI.BaseURL,
		OpenAIMaxRetries: c.Providers.OpenAI.MaxRetries,
		OllamaBaseURL:    c.Providers.Ollama.BaseURL,
	}
}

// PipelineDefaults returns the request defaults derived from the config.
func (c *Config) PipelineDefaults() pipeline.Defaults {
	return pipeline.Defaults{
		Filename:            c.Pipeline.DefaultFilename,
		ProjectType:         c.Pipeline.ProjectType,
		MaxTurns:            c.Pipeline.MaxTurns,
		Refiner:             c.Agents.Refiner,
		Worker1:             c.Agents.Worker1,
		Worker2:             c.Agents.Worker2,
		DebaterA:            c.Agents.DebaterA,
		DebaterB:            c.Agents.DebaterB,
		Summarizer:          c.Agents.Summarizer,
		DebateEnabled:       c.Pipeline.Debate.Enabled,
		DebateTurnsPerAgent: c.Pipeline.Debate.MaxTurnsPerAgent,
		ScaffoldEnabled:     c.Pipeline.Scaffold.Enabled,
	}
}

// PipelineOptions returns the pipeline options derived from the config.
// Callers append their logger and tracer.
func (c *Config) PipelineOptions() []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithDefaults(c.PipelineDefaults()),
		pipeline.WithMaxRevisionsPerTurn(c.Pipeline.MaxRevisionsPerTurn),
		pipeline.WithHistoryWindow(c.Pipeline.HistoryWindow),
		pipeline.WithAgreedPlan(c.Pipeline.ApplyAgreedPlan),
	}
}

// RotationConfig returns the log rotation settings.
func (c *LoggingConfig) RotationConfig() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// ResolveDir returns the directory logs are written to, or "" for stderr.
func (c *LoggingConfig) ResolveDir() string {
	switch c.Dir {
	case "":
		return filepath.Join(ConfigDir(), "logs")
	case "-":
		return ""
	}
	return expandHome(c.Dir)
}

// ResolveTranscriptDir expands a leading ~ in TranscriptDir.
func (c *EventsConfig) ResolveTranscriptDir() string {
	return expandHome(c.TranscriptDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
