package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for dispatch and stream decoding.
var (
	// ErrUnknownProvider is returned by New for a provider name outside
	// the supported set. No network call is made.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingAPIKey is returned by New when a provider requires a
	// credential and none was resolved. Ollama is exempt.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrProtocol indicates a malformed or unexpected stream frame. The
	// stream terminates early; chunks already yielded remain valid.
	ErrProtocol = errors.New("malformed stream frame")
)

// TransportError wraps a network or connection failure. The dispatcher
// never retries; the caller decides.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx HTTP response from a provider. Message carries
// the upstream reason verbatim so the user sees what the provider said.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
}
