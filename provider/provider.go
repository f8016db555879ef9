// Package provider unifies the streaming wire formats of the supported
// LLM backends (Anthropic, OpenAI, OpenRouter, Ollama) behind a single
// token-stream abstraction.
//
// Each backend has one wire adapter that decodes its transport framing
// (SSE or newline-delimited JSON) incrementally, yielding a Chunk as soon
// as one complete unit is decodable. Adapters never buffer the full
// response; memory use is constant in response size.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kaze-sh/kaze/core/protocol"
)

// Chunk is the atomic unit of a streaming response. Final marks the last
// chunk of its stream; ordering is meaningful only within one stream.
type Chunk struct {
	Text  string
	Final bool
}

// TokenStream is a finite, non-restartable sequence of chunks. Recv
// returns io.EOF after the final chunk has been delivered. Close releases
// the underlying transport and is safe to call at any point, including
// mid-stream on cancellation.
type TokenStream interface {
	Recv() (Chunk, error)
	Close() error
}

// Provider streams chat completions for one configured backend.
type Provider interface {
	// Name returns the provider name ("anthropic", "openai", ...).
	Name() string
	// Model returns the resolved model identifier.
	Model() string
	// Stream sends the full ordered message sequence and returns a lazy
	// token stream. The context governs the whole exchange; cancelling
	// it closes the transport.
	Stream(ctx context.Context, messages []protocol.Message) (TokenStream, error)
}

// Config is the resolved provider selection handed in by the config
// layer: which backend, which model, and the credential or base URL it
// needs.
type Config struct {
	// Name selects the wire adapter: anthropic, openai, openrouter, ollama.
	Name string
	// Model is the model identifier sent to the backend. For OpenRouter
	// this may be a compound "provider/model" id, preserved verbatim.
	Model string
	// APIKey authenticates against the backend. Ignored by Ollama.
	APIKey string
	// BaseURL overrides the backend's default endpoint. Required only
	// for nonstandard deployments; Ollama defaults to localhost.
	BaseURL string
	// HTTPClient overrides the transport, mainly for tests. When nil a
	// client without a global timeout is used (streams are long-lived;
	// cancellation is the context's job).
	HTTPClient *http.Client
}

// Supported provider names.
const (
	NameAnthropic  = "anthropic"
	NameOpenAI     = "openai"
	NameOpenRouter = "openrouter"
	NameOllama     = "ollama"
)

// DefaultModel returns the default model identifier for a provider name,
// or "" for an unknown name.
func DefaultModel(name string) string {
	switch name {
	case NameAnthropic:
		return defaultAnthropicModel
	case NameOpenAI:
		return defaultOpenAIModel
	case NameOpenRouter:
		return defaultOpenRouterModel
	case NameOllama:
		return defaultOllamaModel
	}
	return ""
}

// Names returns the supported provider names in display order.
func Names() []string {
	return []string{NameAnthropic, NameOpenAI, NameOpenRouter, NameOllama}
}

const (
	defaultAnthropicModel  = "claude-sonnet-4-5"
	defaultOpenAIModel     = "gpt-4o"
	defaultOpenRouterModel = "arcee-ai/trinity-large-preview:free"
	defaultOllamaModel     = "llama3.2"

	defaultAnthropicBaseURL  = "https://api.anthropic.com"
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOllamaBaseURL     = "http://localhost:11434"

	maxTokens = 4096
)

// New selects a wire adapter from cfg.Name and validates credentials
// before any network activity. Unknown names fail with
// ErrUnknownProvider; a missing credential fails with ErrMissingAPIKey
// (Ollama needs none, only a reachable base URL).
func New(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Name)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 0}
	}

	switch cfg.Name {
	case NameAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s (set ANTHROPIC_API_KEY or configure it)", ErrMissingAPIKey, cfg.Name)
		}
		return newAnthropic(cfg), nil
	case NameOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s (set OPENAI_API_KEY or configure it)", ErrMissingAPIKey, cfg.Name)
		}
		return newOpenAI(cfg), nil
	case NameOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s (set OPENROUTER_API_KEY or configure it)", ErrMissingAPIKey, cfg.Name)
		}
		return newOpenRouter(cfg), nil
	case NameOllama:
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: anthropic, openai, openrouter, ollama)", ErrUnknownProvider, cfg.Name)
	}
}
