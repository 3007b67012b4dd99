package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/pipeline"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pipeline.max_turns")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// subjectTokenRegex validates a NATS subject prefix: dot-separated tokens
// without wildcards or whitespace.
var subjectTokenRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidGinModes returns the list of valid gin modes
func ValidGinModes() []string {
	return []string{"debug", "release", "test"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProviders()...)
	errors = append(errors, c.validateAgents()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateEvents()...)

	return errors
}

// validateProviders validates the ProvidersConfig
func (c *Config) validateProviders() []ValidationError {
	var errors []ValidationError

	if c.Providers.OpenAI.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "providers.openai.max_retries",
			Value:   c.Providers.OpenAI.MaxRetries,
			Message: "must be non-negative",
		})
	}

	if c.Providers.OpenAI.BaseURL != "" {
		if err := validateHTTPURL(c.Providers.OpenAI.BaseURL); err != "" {
			errors = append(errors, ValidationError{
				Field:   "providers.openai.base_url",
				Value:   c.Providers.OpenAI.BaseURL,
				Message: err,
			})
		}
	}

	if c.Providers.Ollama.BaseURL != "" {
		if err := validateHTTPURL(c.Providers.Ollama.BaseURL); err != "" {
			errors = append(errors, ValidationError{
				Field:   "providers.ollama.base_url",
				Value:   c.Providers.Ollama.BaseURL,
				Message: err,
			})
		}
	}

	if strings.TrimSpace(c.Providers.Ollama.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "providers.ollama.binary",
			Value:   c.Providers.Ollama.Binary,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateAgents validates the AgentsConfig. Empty roles are allowed; a
// request or a fallback role fills them.
func (c *Config) validateAgents() []ValidationError {
	var errors []ValidationError

	roles := c.Agents.byRole()
	keys := make([]string, 0, len(roles))
	for role := range roles {
		keys = append(keys, role)
	}
	slices.Sort(keys)

	for _, role := range keys {
		agent := roles[role]
		if agent.Provider == "" {
			continue
		}
		if !slices.Contains(llm.SupportedProviders(), strings.ToLower(agent.Provider)) {
			errors = append(errors, ValidationError{
				Field:   "agents." + role + ".provider",
				Value:   agent.Provider,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(llm.SupportedProviders(), ", ")),
			})
		}
		if strings.TrimSpace(agent.Model) == "" {
			errors = append(errors, ValidationError{
				Field:   "agents." + role + ".model",
				Value:   agent.Model,
				Message: "is required when a provider is set",
			})
		}
	}

	return errors
}

// validatePipeline validates the PipelineConfig
func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if c.Pipeline.MaxTurns < pipeline.MinTurns || c.Pipeline.MaxTurns > pipeline.MaxTurns {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_turns",
			Value:   c.Pipeline.MaxTurns,
			Message: fmt.Sprintf("must be between %d and %d", pipeline.MinTurns, pipeline.MaxTurns),
		})
	}

	if c.Pipeline.MaxRevisionsPerTurn < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_revisions_per_turn",
			Value:   c.Pipeline.MaxRevisionsPerTurn,
			Message: "must be at least 1",
		})
	}

	if c.Pipeline.HistoryWindow < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.history_window",
			Value:   c.Pipeline.HistoryWindow,
			Message: "must be at least 1",
		})
	}

	if strings.TrimSpace(c.Pipeline.DefaultFilename) == "" {
		errors = append(errors, ValidationError{
			Field:   "pipeline.default_filename",
			Value:   c.Pipeline.DefaultFilename,
			Message: "must not be empty",
		})
	} else if strings.HasPrefix(c.Pipeline.DefaultFilename, "/") || slices.Contains(strings.Split(c.Pipeline.DefaultFilename, "/"), "..") {
		errors = append(errors, ValidationError{
			Field:   "pipeline.default_filename",
			Value:   c.Pipeline.DefaultFilename,
			Message: "must be a relative path inside the project",
		})
	}

	// Reasonable upper bound; every debate turn is a full completion call
	const maxDebateTurns = 10
	if c.Pipeline.Debate.MaxTurnsPerAgent < 1 || c.Pipeline.Debate.MaxTurnsPerAgent > maxDebateTurns {
		errors = append(errors, ValidationError{
			Field:   "pipeline.debate.max_turns_per_agent",
			Value:   c.Pipeline.Debate.MaxTurnsPerAgent,
			Message: fmt.Sprintf("must be between 1 and %d", maxDebateTurns),
		})
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	if c.Server.ReadHeaderTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_header_timeout",
			Value:   c.Server.ReadHeaderTimeout,
			Message: "must be non-negative",
		})
	}

	if c.Server.ShutdownTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout",
			Value:   c.Server.ShutdownTimeout,
			Message: "must be non-negative",
		})
	}

	if c.Server.GinMode != "" && !slices.Contains(ValidGinModes(), c.Server.GinMode) {
		errors = append(errors, ValidationError{
			Field:   "server.gin_mode",
			Value:   c.Server.GinMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidGinModes(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateEvents validates the EventsConfig
func (c *Config) validateEvents() []ValidationError {
	var errors []ValidationError

	if c.Events.NATSURL != "" {
		u, err := url.Parse(c.Events.NATSURL)
		if err != nil || u.Host == "" || !slices.Contains([]string{"nats", "tls", "ws", "wss"}, u.Scheme) {
			errors = append(errors, ValidationError{
				Field:   "events.nats_url",
				Value:   c.Events.NATSURL,
				Message: "must be a nats://, tls://, ws:// or wss:// URL",
			})
		}
	}

	if !subjectTokenRegex.MatchString(c.Events.SubjectPrefix) {
		errors = append(errors, ValidationError{
			Field:   "events.subject_prefix",
			Value:   c.Events.SubjectPrefix,
			Message: "must be dot-separated tokens of letters, digits, hyphens or underscores",
		})
	}

	if strings.ContainsRune(c.Events.TranscriptDir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "events.transcript_dir",
			Value:   c.Events.TranscriptDir,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateHTTPURL returns a message describing why raw is unusable, or "".
func validateHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "must be a valid URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "must use http or https"
	}
	if u.Host == "" {
		return "must include a host"
	}
	return ""
}
