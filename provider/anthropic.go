package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kaze-sh/kaze/core/protocol"
)

const anthropicVersion = "2023-06-01"

// anthropic streams chat completions over Anthropic's Messages API. The
// SSE framing differs from OpenAI's: events are named, the system prompt
// travels in a top-level field rather than the message list, and the
// stream terminates with a message_stop event instead of a sentinel.
type anthropic struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newAnthropic(cfg Config) *anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropic{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  cfg.HTTPClient,
	}
}

func (p *anthropic) Name() string  { return NameAnthropic }
func (p *anthropic) Model() string { return p.model }

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Stream    bool          `json:"stream"`
}

func (p *anthropic) Stream(ctx context.Context, messages []protocol.Message) (TokenStream, error) {
	// System messages move to the dedicated field; the Messages API
	// rejects them in the message list.
	var system string
	turns := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == protocol.RoleSystem {
			if system == "" {
				system = m.Content
			}
			continue
		}
		turns = append(turns, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body := anthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  turns,
		Stream:    true,
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}

	rc, err := postStream(ctx, p.client, p.baseURL+"/v1/messages", headers, body)
	if err != nil {
		return nil, err
	}

	return &anthropicStream{sse: newSSEScanner(rc), body: rc}, nil
}

// anthropicStream decodes the Messages API event sequence. Only
// content_block_delta events carry text; message_stop marks the end.
type anthropicStream struct {
	sse  *sseScanner
	body io.ReadCloser
	done bool
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *anthropicStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	for {
		ev, err := s.sse.next()
		if err == io.EOF {
			return Chunk{}, fmt.Errorf("%w: stream ended before message_stop", ErrProtocol)
		}
		if err != nil {
			return Chunk{}, err
		}

		var frame anthropicEvent
		if err := json.Unmarshal(ev.data, &frame); err != nil {
			return Chunk{}, fmt.Errorf("%w: %v", ErrProtocol, err)
		}

		switch frame.Type {
		case "content_block_delta":
			if frame.Delta.Type == "text_delta" && frame.Delta.Text != "" {
				return Chunk{Text: frame.Delta.Text}, nil
			}
		case "message_stop":
			s.done = true
			return Chunk{Final: true}, nil
		case "error":
			return Chunk{}, fmt.Errorf("%w: provider error event: %s", ErrProtocol, frame.Error.Message)
		default:
			// message_start, content_block_start/stop, message_delta, ping.
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}
