package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Iron-Ham/codepair/internal/errors"
)

// DefaultOllamaURL is where a local Ollama daemon listens by default.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider streams chat completions from a local Ollama daemon using
// its newline-delimited JSON API. No credentials are involved.
type OllamaProvider struct {
	baseURL string
	client  *http.Client
}

// NewOllamaProvider creates a provider for the daemon at baseURL. Empty
// values select DefaultOllamaURL and http.DefaultClient.
func NewOllamaProvider(baseURL string, client *http.Client) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

// Stream posts to /api/chat and returns once response headers arrive.
func (p *OllamaProvider) Stream(ctx context.Context, req Request) (DeltaStream, error) {
	body := ollamaChatRequest{
		Model:    req.Model,
		Messages: make([]ollamaMessage, 0, len(req.Messages)),
		Stream:   true,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.NewProviderError(ProviderOllama, "daemon unreachable",
			errors.Join(errors.ErrProviderUnavailable, err)).WithModel(req.Model).WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewProviderError(ProviderOllama, "chat request rejected",
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(detail)))).
			WithModel(req.Model).WithStatusCode(resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &ollamaStream{
		ctx:     ctx,
		model:   req.Model,
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

type ollamaStream struct {
	ctx     context.Context
	model   string
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *ollamaStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		if !s.scanner.Scan() {
			if err := s.ctx.Err(); err != nil {
				return "", err
			}
			if err := s.scanner.Err(); err != nil {
				return "", errors.NewProviderError(ProviderOllama, "stream read failed", err).WithModel(s.model)
			}
			// The body ended before a done frame: the reply is truncated.
			return "", errors.NewProviderError(ProviderOllama, "stream ended without done frame", io.ErrUnexpectedEOF).
				WithModel(s.model).WithRetryable(true)
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", errors.NewProviderError(ProviderOllama, "malformed stream frame", err).WithModel(s.model)
		}
		if chunk.Error != "" {
			return "", errors.NewProviderError(ProviderOllama, chunk.Error, nil).WithModel(s.model)
		}
		if chunk.Done {
			s.done = true
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
	}
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
