package chat

import "github.com/kaze-sh/kaze/observability"

// Chat event types emitted by the driver and the REPL.
const (
	EventSessionStart  observability.EventType = "chat.session.start"
	EventSessionResume observability.EventType = "chat.session.resume"
	EventTurnStart     observability.EventType = "chat.turn.start"
	EventStreamOpen    observability.EventType = "provider.stream.open"
	EventTurnComplete  observability.EventType = "chat.turn.complete"
	EventTurnCancel    observability.EventType = "chat.turn.cancel"
	EventTurnError     observability.EventType = "chat.turn.error"
	EventContextClear  observability.EventType = "chat.context.clear"
)
