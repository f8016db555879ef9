package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kaze-sh/kaze/core/protocol"
)

// wireMessage is the role/content pair shared by every provider's chat
// request schema.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toWireMessages(messages []protocol.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// openAI streams chat completions over the OpenAI-compatible SSE
// protocol. OpenRouter shares this adapter's framing; see openrouter.go.
type openAI struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAI(cfg Config) *openAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAI{
		name:    NameOpenAI,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  cfg.HTTPClient,
	}
}

func (p *openAI) Name() string  { return p.name }
func (p *openAI) Model() string { return p.model }

type chatCompletionsRequest struct {
	Model     string        `json:"model"`
	Messages  []wireMessage `json:"messages"`
	MaxTokens int           `json:"max_completion_tokens,omitempty"`
	Stream    bool          `json:"stream"`
}

func (p *openAI) Stream(ctx context.Context, messages []protocol.Message) (TokenStream, error) {
	body := chatCompletionsRequest{
		Model:    p.model,
		Messages: toWireMessages(messages),
		Stream:   true,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	rc, err := postStream(ctx, p.client, p.baseURL+"/chat/completions", headers, body)
	if err != nil {
		return nil, err
	}

	return &chatCompletionsStream{sse: newSSEScanner(rc), body: rc}, nil
}

// chatCompletionsStream decodes the OpenAI SSE framing: one JSON chunk
// per "data:" event, terminated by a literal "[DONE]" sentinel.
type chatCompletionsStream struct {
	sse  *sseScanner
	body io.ReadCloser
	done bool
}

type chatCompletionsChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *chatCompletionsStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	for {
		ev, err := s.sse.next()
		if err == io.EOF {
			// Stream closed without the [DONE] sentinel.
			return Chunk{}, fmt.Errorf("%w: stream ended before completion", ErrProtocol)
		}
		if err != nil {
			return Chunk{}, err
		}

		if string(ev.data) == "[DONE]" {
			s.done = true
			return Chunk{Final: true}, nil
		}

		var frame chatCompletionsChunk
		if err := json.Unmarshal(ev.data, &frame); err != nil {
			return Chunk{}, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if len(frame.Choices) == 0 {
			continue
		}
		if text := frame.Choices[0].Delta.Content; text != "" {
			return Chunk{Text: text}, nil
		}
		// Role-only or finish_reason-only delta; the [DONE] sentinel follows.
	}
}

func (s *chatCompletionsStream) Close() error {
	return s.body.Close()
}
