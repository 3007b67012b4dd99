package llm

import (
	"strings"

	"github.com/Iron-Ham/codepair/internal/errors"
)

// Provider names accepted in AgentConfig.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// SupportedProviders lists every provider name Factory can resolve.
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderOllama}
}

// AgentConfig selects the backend and model for one agent role. APIKey is
// optional; Factory falls back to configured credentials.
type AgentConfig struct {
	Provider string `json:"provider" mapstructure:"provider" yaml:"provider"`
	Model    string `json:"model" mapstructure:"model" yaml:"model"`
	APIKey   string `json:"apiKey,omitempty" mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// IsZero reports whether no field is set.
func (c AgentConfig) IsZero() bool {
	return c.Provider == "" && c.Model == "" && c.APIKey == ""
}

// Or returns c, with empty fields filled from fallback.
func (c AgentConfig) Or(fallback AgentConfig) AgentConfig {
	if c.Provider == "" {
		c.Provider = fallback.Provider
	}
	if c.Model == "" {
		c.Model = fallback.Model
	}
	if c.APIKey == "" {
		c.APIKey = fallback.APIKey
	}
	return c
}

// Validate checks the provider name and model.
func (c AgentConfig) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderOpenAI, ProviderOllama:
	default:
		return errors.NewValidationError("provider must be one of: openai, ollama").
			WithField("provider").WithValue(c.Provider).WithCause(errors.ErrUnknownProvider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.NewValidationError("model is required").WithField("model")
	}
	return nil
}

// String renders the config without its key.
func (c AgentConfig) String() string {
	return c.Provider + "/" + c.Model
}
