package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaze-sh/kaze/provider"
)

func openAIServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, provider.Provider) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := provider.New(provider.Config{
		Name:       provider.NameOpenAI,
		Model:      "gpt-4o",
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return server, p
}

func sseChunk(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{"content": text}}},
	})
	return fmt.Sprintf("data: %s\n\n", payload)
}

func TestOpenAI_Stream(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	_, p := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("He"))
		io.WriteString(w, sseChunk("llo"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := p.Stream(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	chunks, err := collectChunks(t, stream)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}

	if got := joinText(chunks); got != "Hello" {
		t.Errorf("streamed text = %q, want %q", got, "Hello")
	}
	if !chunks[len(chunks)-1].Final {
		t.Error("last chunk not marked final")
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotBody.Model != "gpt-4o" || !gotBody.Stream {
		t.Errorf("request model/stream = %q/%v, want gpt-4o/true", gotBody.Model, gotBody.Stream)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v, want system first then user", gotBody.Messages)
	}
}

func TestOpenAI_Stream_SkipsKeepAliveComments(t *testing.T) {
	_, p := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ": OPENROUTER PROCESSING\n\n")
		io.WriteString(w, sseChunk("ok"))
		io.WriteString(w, ": still here\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, _ := p.Stream(context.Background(), testMessages())
	chunks, err := collectChunks(t, stream)
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if got := joinText(chunks); got != "ok" {
		t.Errorf("streamed text = %q, want %q", got, "ok")
	}
}

func TestOpenAI_Stream_HTTPError(t *testing.T) {
	_, p := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	})

	_, err := p.Stream(context.Background(), testMessages())
	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Stream() error = %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", statusErr.Status, http.StatusUnauthorized)
	}
	if statusErr.Message != "Incorrect API key provided" {
		t.Errorf("Message = %q, want upstream reason verbatim", statusErr.Message)
	}
}

func TestOpenAI_Stream_MalformedFrame(t *testing.T) {
	_, p := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("good"))
		io.WriteString(w, "data: {not json\n\n")
	})

	stream, _ := p.Stream(context.Background(), testMessages())
	chunks, err := collectChunks(t, stream)
	if !errors.Is(err, provider.ErrProtocol) {
		t.Fatalf("Recv() error = %v, want %v", err, provider.ErrProtocol)
	}
	// Chunks yielded before the bad frame stay valid.
	if got := joinText(chunks); got != "good" {
		t.Errorf("chunks before failure = %q, want %q", got, "good")
	}
}

func TestOpenAI_Stream_TruncatedStream(t *testing.T) {
	_, p := openAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("partial"))
		// Connection closes without [DONE].
	})

	stream, _ := p.Stream(context.Background(), testMessages())
	_, err := collectChunks(t, stream)
	if !errors.Is(err, provider.ErrProtocol) {
		t.Errorf("Recv() error = %v, want %v", err, provider.ErrProtocol)
	}
}

func TestOpenRouter_Stream_PreservesCompoundModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		gotModel = body.Model

		io.WriteString(w, sseChunk("hi"))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	p, err := provider.New(provider.Config{
		Name:       provider.NameOpenRouter,
		Model:      "anthropic/claude-sonnet-4-5",
		APIKey:     "k",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stream, err := p.Stream(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if _, err := collectChunks(t, stream); err != nil {
		t.Fatalf("Recv() error = %v", err)
	}

	// OpenRouter's registry interprets the compound id; no splitting.
	if gotModel != "anthropic/claude-sonnet-4-5" {
		t.Errorf("request model = %q, want compound id verbatim", gotModel)
	}
}
