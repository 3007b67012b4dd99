// Package llm is the completion transport: a uniform streaming interface over
// the OpenAI chat completions API and a local Ollama daemon.
package llm

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message. Name tags messages in multi-agent transcripts
// (debater names) and is not sent to providers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// System, User and Assistant build messages of the corresponding role.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is one completion call.
type Request struct {
	Model    string
	Messages []Message
}

// DeltaStream is a single-pass sequence of text fragments.
//
// Recv returns io.EOF after the provider signals completion, and the
// context's error once the stream's context is canceled. Close releases the
// underlying connection and is safe to call more than once.
type DeltaStream interface {
	Recv() (string, error)
	Close() error
}

// Provider starts streaming completions for one backend.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (DeltaStream, error)
}

// Collect drains stream, calling onChunk (if non-nil) for every non-empty
// fragment, and returns the concatenated text. The stream is always closed.
// On error the text received so far is returned alongside it.
func Collect(ctx context.Context, stream DeltaStream, onChunk func(string)) (string, error) {
	defer func() { _ = stream.Close() }()

	var sb strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
}

// Complete starts a stream on p and collects it.
func Complete(ctx context.Context, p Provider, req Request, onChunk func(string)) (string, error) {
	stream, err := p.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	return Collect(ctx, stream, onChunk)
}
