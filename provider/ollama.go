package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kaze-sh/kaze/core/protocol"
)

// ollama streams chat completions from a local Ollama daemon. The
// transport is newline-delimited JSON rather than SSE: one object per
// line, each carrying a done boolean that maps directly to Chunk.Final.
// No credential is required, only a reachable base URL.
type ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

func newOllama(cfg Config) *ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollama{
		model:   cfg.Model,
		baseURL: baseURL,
		client:  cfg.HTTPClient,
	}
}

func (p *ollama) Name() string  { return NameOllama }
func (p *ollama) Model() string { return p.model }

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func (p *ollama) Stream(ctx context.Context, messages []protocol.Message) (TokenStream, error) {
	body := ollamaRequest{
		Model:    p.model,
		Messages: toWireMessages(messages),
		Stream:   true,
	}

	rc, err := postStream(ctx, p.client, p.baseURL+"/api/chat", nil, body)
	if err != nil {
		return nil, err
	}

	return &ollamaStream{r: bufio.NewReader(rc), body: rc}, nil
}

type ollamaStream struct {
	r    *bufio.Reader
	body io.ReadCloser
	done bool
}

type ollamaFrame struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (s *ollamaStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(bytes.TrimSpace(line)) == 0 {
					return Chunk{}, fmt.Errorf("%w: stream ended before done frame", ErrProtocol)
				}
				// Fall through and decode the unterminated last line.
			} else {
				return Chunk{}, &TransportError{Err: err}
			}
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var frame ollamaFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return Chunk{}, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if frame.Error != "" {
			return Chunk{}, fmt.Errorf("%w: provider error: %s", ErrProtocol, frame.Error)
		}

		if frame.Done {
			s.done = true
			return Chunk{Text: frame.Message.Content, Final: true}, nil
		}
		if frame.Message.Content != "" {
			return Chunk{Text: frame.Message.Content}, nil
		}
	}
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
