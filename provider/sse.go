package provider

import (
	"bufio"
	"bytes"
	"io"
)

// sseEvent is one decoded server-sent event: the event name (may be
// empty, as in OpenAI's streams) and the concatenated data payload.
type sseEvent struct {
	name string
	data []byte
}

// sseScanner decodes server-sent events from a byte stream one frame at
// a time. It reads line by line, so memory use is bounded by the largest
// single event, never the whole response.
type sseScanner struct {
	r *bufio.Reader
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{r: bufio.NewReader(r)}
}

// next returns the next complete event. Comment lines (leading ':', used
// by OpenRouter as keep-alives) are skipped. Returns io.EOF when the
// stream ends cleanly with no pending event.
func (s *sseScanner) next() (sseEvent, error) {
	var ev sseEvent
	var data [][]byte
	seen := false

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if seen {
					ev.data = bytes.Join(data, []byte("\n"))
					return ev, nil
				}
				return ev, io.EOF
			}
			return ev, &TransportError{Err: err}
		}

		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			// Blank line terminates an event. Skip leading blanks.
			if seen {
				ev.data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
		case line[0] == ':':
			// Keep-alive comment.
		case bytes.HasPrefix(line, []byte("event:")):
			ev.name = string(bytes.TrimSpace(line[len("event:"):]))
			seen = true
		case bytes.HasPrefix(line, []byte("data:")):
			data = append(data, bytes.TrimSpace(line[len("data:"):]))
			seen = true
		default:
			// Unknown field (id:, retry:); irrelevant to chat streams.
		}
	}
}
