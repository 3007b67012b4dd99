package llm

import (
	"net/http"
	"os"
	"strings"

	"github.com/Iron-Ham/codepair/internal/errors"
)

// Resolver turns an agent configuration into a ready Provider. Pipelines and
// stages receive a Resolver instead of reading credentials themselves.
type Resolver interface {
	Provider(cfg AgentConfig) (Provider, error)
}

// FactoryConfig holds the process-wide provider settings.
type FactoryConfig struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIMaxRetries int
	OllamaBaseURL    string
	HTTPClient       *http.Client
}

// Factory is the default Resolver.
//
// OpenAI keys resolve in order: AgentConfig.APIKey, FactoryConfig.OpenAIAPIKey,
// then OPENAI_API_KEY as read when the Factory was created.
type Factory struct {
	cfg    FactoryConfig
	envKey string
	ollama *OllamaProvider
}

// NewFactory creates a Factory. The environment is read here and never again.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{
		cfg:    cfg,
		envKey: os.Getenv("OPENAI_API_KEY"),
		ollama: NewOllamaProvider(cfg.OllamaBaseURL, cfg.HTTPClient),
	}
}

// Provider implements Resolver.
func (f *Factory) Provider(cfg AgentConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     f.openAIKey(cfg.APIKey),
			BaseURL:    f.cfg.OpenAIBaseURL,
			MaxRetries: f.cfg.OpenAIMaxRetries,
			HTTPClient: f.cfg.HTTPClient,
		})
	case ProviderOllama:
		return f.ollama, nil
	default:
		return nil, errors.NewProviderError(cfg.Provider, "unsupported provider", errors.ErrUnknownProvider).
			WithModel(cfg.Model)
	}
}

func (f *Factory) openAIKey(explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case f.cfg.OpenAIAPIKey != "":
		return f.cfg.OpenAIAPIKey
	default:
		return f.envKey
	}
}
