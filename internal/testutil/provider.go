package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Iron-Ham/codepair/internal/errors"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// Response scripts one completion call.
type Response struct {
	// Chunks are streamed in order.
	Chunks []string
	// Err is returned from Stream, before any chunk.
	Err error
	// StreamErr is returned from Recv after all chunks.
	StreamErr error
	// Block makes Recv wait for the context after all chunks.
	Block bool
}

// Text scripts a successful reply of s, streamed in chunks of at most 16
// bytes.
func Text(s string) Response {
	var chunks []string
	for len(s) > 16 {
		chunks = append(chunks, s[:16])
		s = s[16:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return Response{Chunks: chunks}
}

// Fail scripts a call that fails before streaming.
func Fail(err error) Response {
	return Response{Err: err}
}

// Hang scripts a call that streams chunks, then blocks until canceled.
func Hang(chunks ...string) Response {
	return Response{Chunks: chunks, Block: true}
}

// ScriptedProvider is an llm.Provider that replays queued responses and
// records every request. When the queue is empty, Respond (if set) is
// consulted; otherwise the call fails.
type ScriptedProvider struct {
	mu        sync.Mutex
	name      string
	responses []Response
	requests  []llm.Request

	// Respond produces a response once the queue is drained.
	Respond func(req llm.Request) Response
}

// NewScriptedProvider creates a provider that replays responses in order.
func NewScriptedProvider(name string, responses ...Response) *ScriptedProvider {
	return &ScriptedProvider{name: name, responses: responses}
}

// Push appends responses to the queue.
func (p *ScriptedProvider) Push(responses ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

// Name implements llm.Provider.
func (p *ScriptedProvider) Name() string { return p.name }

// Stream implements llm.Provider.
func (p *ScriptedProvider) Stream(ctx context.Context, req llm.Request) (llm.DeltaStream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	calls := len(p.requests)
	var resp Response
	queued := len(p.responses) > 0
	if queued {
		resp = p.responses[0]
		p.responses = p.responses[1:]
	}
	respond := p.Respond
	p.mu.Unlock()

	if !queued {
		if respond == nil {
			return nil, fmt.Errorf("scripted provider %q: no response queued for call %d", p.name, calls)
		}
		resp = respond(req)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &scriptedStream{ctx: ctx, resp: resp}, nil
}

// Requests returns a copy of every request received so far.
func (p *ScriptedProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

// CallCount returns the number of Stream calls.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type scriptedStream struct {
	ctx    context.Context
	resp   Response
	next   int
	closed bool
}

func (s *scriptedStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.next < len(s.resp.Chunks) {
		chunk := s.resp.Chunks[s.next]
		s.next++
		return chunk, nil
	}
	if s.resp.StreamErr != nil {
		return "", s.resp.StreamErr
	}
	if s.resp.Block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// StaticFactory is an llm.Resolver that maps model names to providers, so
// tests can give each agent role its own script.
type StaticFactory map[string]llm.Provider

// Provider implements llm.Resolver.
func (f StaticFactory) Provider(cfg llm.AgentConfig) (llm.Provider, error) {
	if p, ok := f[cfg.Model]; ok {
		return p, nil
	}
	return nil, errors.NewProviderError(cfg.Provider, "no scripted provider for model "+cfg.Model, errors.ErrUnknownProvider)
}

// Agent returns an AgentConfig that StaticFactory resolves by model.
func Agent(model string) llm.AgentConfig {
	return llm.AgentConfig{Provider: llm.ProviderOllama, Model: model}
}
