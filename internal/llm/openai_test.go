package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	cperrors "github.com/Iron-Ham/codepair/internal/errors"
)

func chunkFrame(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", content)
}

func TestOpenAIProvider_Stream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, chunkFrame("```tsx\n"))
		_, _ = fmt.Fprint(w, chunkFrame(""))
		_, _ = fmt.Fprint(w, chunkFrame("export default 1\n```"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	var chunks []string
	text, err := Complete(context.Background(), p, Request{
		Model:    "gpt-4o",
		Messages: []Message{System("sys"), User("task"), Assistant("prior")},
	}, func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "```tsx\nexport default 1\n```" {
		t.Errorf("text = %q", text)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
	if body["stream"] != true || body["model"] != "gpt-4o" {
		t.Errorf("unexpected request body: %v", body)
	}
	if msgs, ok := body["messages"].([]any); !ok || len(msgs) != 3 {
		t.Errorf("expected 3 messages, got %v", body["messages"])
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	_, err = Complete(context.Background(), p, Request{Model: "gpt-4o", Messages: []Message{User("x")}}, nil)
	var perr *cperrors.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", perr.StatusCode)
	}
	if !cperrors.IsRetryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestNewOpenAIProvider_MissingKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	if !errors.Is(err, cperrors.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}
