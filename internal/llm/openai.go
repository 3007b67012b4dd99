package llm

import (
	"context"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/Iron-Ham/codepair/internal/errors"
)

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

// OpenAIProvider streams chat completions from the OpenAI API (or any
// compatible endpoint set through BaseURL).
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a provider. The API key must be non-empty.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewProviderError(ProviderOpenAI, "no API key configured", errors.ErrMissingCredentials)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Stream starts a streaming chat completion. Connection and HTTP errors
// surface from the first Recv.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (DeltaStream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
	}
	return &openAIStream{
		ctx:    ctx,
		model:  req.Model,
		stream: p.client.Chat.Completions.NewStreaming(ctx, params),
	}, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

type openAIStream struct {
	ctx     context.Context
	model   string
	stream  *ssestream.Stream[openai.ChatCompletionChunk]
	pending []string
	closed  bool
}

func (s *openAIStream) Recv() (string, error) {
	for len(s.pending) == 0 {
		if !s.stream.Next() {
			if err := s.ctx.Err(); err != nil {
				return "", err
			}
			if err := s.stream.Err(); err != nil {
				return "", wrapOpenAIError(s.model, err)
			}
			return "", io.EOF
		}
		for _, choice := range s.stream.Current().Choices {
			if choice.Delta.Content != "" {
				s.pending = append(s.pending, choice.Delta.Content)
			}
		}
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

func (s *openAIStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

func wrapOpenAIError(model string, err error) error {
	perr := errors.NewProviderError(ProviderOpenAI, "stream failed", err).WithModel(model)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr = perr.WithStatusCode(apiErr.StatusCode)
	}
	return perr
}
