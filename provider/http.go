package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// errorBodyLimit caps how much of a non-2xx response body is read for the
// error message surfaced to the user.
const errorBodyLimit = 8 << 10

// postStream issues a streaming POST with a JSON body and returns the
// open response body. Network failures map to TransportError, non-2xx
// statuses to StatusError with the upstream reason extracted from the
// body.
func postStream(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Message: extractErrorMessage(raw)}
	}

	return resp.Body, nil
}

// extractErrorMessage pulls a human-readable reason out of a provider
// error body. Providers wrap it differently ({"error":{"message":...}},
// {"error":"..."}, or plain text); unknown shapes pass through raw.
func extractErrorMessage(raw []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}

	return strings.TrimSpace(string(raw))
}
