// Package chat implements the conversation driver and the interactive
// REPL. The driver orchestrates one turn: assemble context, stream the
// provider response, and persist the completed exchange.
package chat

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/kaze-sh/kaze/core/protocol"
	"github.com/kaze-sh/kaze/observability"
	"github.com/kaze-sh/kaze/provider"
	"github.com/kaze-sh/kaze/store"
)

// Driver holds one active session's in-memory context and serializes
// turns against it. Turns never overlap: the REPL awaits each turn
// before prompting again.
type Driver struct {
	provider provider.Provider
	store    store.Store
	session  store.Session
	context  []protocol.Message
	observer observability.Observer
}

// Option configures a Driver after construction.
type Option func(*Driver)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// StartNew creates a fresh session seeded with the system prompt and
// returns a driver for it.
func StartNew(ctx context.Context, st store.Store, p provider.Provider, systemPrompt string, opts ...Option) (*Driver, error) {
	sess, err := st.Create(ctx, p.Model(), p.Name(), systemPrompt)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		provider: p,
		store:    st,
		session:  sess,
		context:  protocol.InitMessages(protocol.RoleSystem, systemPrompt),
		observer: observability.NoOpObserver{},
	}
	// Keep the persisted system message and the in-memory one identical.
	d.context[0].Timestamp = sess.CreatedAt

	for _, opt := range opts {
		opt(d)
	}

	d.emit(ctx, EventSessionStart, observability.LevelInfo, map[string]any{
		"session":  store.ShortID(sess.ID),
		"provider": p.Name(),
		"model":    p.Model(),
	})
	return d, nil
}

// Resume loads an existing session's full log as the in-memory context
// and returns a driver for it.
func Resume(ctx context.Context, st store.Store, p provider.Provider, id string, opts ...Option) (*Driver, error) {
	sess, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := st.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		provider: p,
		store:    st,
		session:  sess,
		context:  messages,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.emit(ctx, EventSessionResume, observability.LevelInfo, map[string]any{
		"session":  store.ShortID(sess.ID),
		"messages": len(messages),
	})
	return d, nil
}

// Session returns the active session's metadata as of driver creation.
func (d *Driver) Session() store.Session {
	return d.session
}

// Context returns a defensive copy of the in-memory conversation
// context, exactly what the next turn will send.
func (d *Driver) Context() []protocol.Message {
	return slices.Clone(d.context)
}

// Turn runs one exchange: sends the context plus the new user message,
// forwards each chunk to onChunk as it arrives, and persists the
// completed turn. Persistence rules:
//
//   - success: user message then full assistant message, in that order;
//   - failure after the stream opened: user message only, the partial
//     assistant output is discarded from durable state;
//   - cancellation, or failure before the stream opened: nothing.
//
// The in-memory context grows only on success, so a failed turn can be
// retried verbatim.
func (d *Driver) Turn(ctx context.Context, userText string, onChunk func(provider.Chunk)) (string, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return "", ErrEmptyPrompt
	}

	userMsg := protocol.NewMessage(protocol.RoleUser, text)
	attempt := append(slices.Clone(d.context), userMsg)

	d.emit(ctx, EventTurnStart, observability.LevelVerbose, map[string]any{
		"session":  store.ShortID(d.session.ID),
		"messages": len(attempt),
	})

	stream, err := d.provider.Stream(ctx, attempt)
	if err != nil {
		d.emitError(ctx, err)
		return "", err
	}
	defer stream.Close()

	d.emit(ctx, EventStreamOpen, observability.LevelVerbose, map[string]any{
		"provider": d.provider.Name(),
		"model":    d.provider.Model(),
	})

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted: durable state stays exactly as it was
				// before the turn started.
				d.emit(ctx, EventTurnCancel, observability.LevelInfo, map[string]any{
					"session": store.ShortID(d.session.ID),
				})
				return "", ctx.Err()
			}
			d.emitError(ctx, err)
			// The user turn was sent; keep it in durable history.
			if appendErr := d.store.Append(context.WithoutCancel(ctx), d.session.ID, userMsg); appendErr != nil {
				d.emitError(ctx, appendErr)
			}
			return "", err
		}
		if chunk.Text != "" {
			onChunk(chunk)
			full.WriteString(chunk.Text)
		}
		if chunk.Final {
			break
		}
	}

	assistantMsg := protocol.NewMessage(protocol.RoleAssistant, full.String())
	if err := d.store.Append(ctx, d.session.ID, userMsg); err != nil {
		return "", err
	}
	if err := d.store.Append(ctx, d.session.ID, assistantMsg); err != nil {
		return "", err
	}

	d.context = append(d.context, userMsg, assistantMsg)
	d.session.UpdatedAt = assistantMsg.Timestamp
	if d.session.Title == "" {
		sess, err := d.store.Get(ctx, d.session.ID)
		if err == nil {
			d.session.Title = sess.Title
		}
	}

	d.emit(ctx, EventTurnComplete, observability.LevelInfo, map[string]any{
		"session":         store.ShortID(d.session.ID),
		"response_length": full.Len(),
	})
	return full.String(), nil
}

// Clear resets the in-memory context to just the system message. The
// persisted log is untouched; see store.Store.ClearContext.
func (d *Driver) Clear(ctx context.Context) error {
	reset, err := d.store.ClearContext(ctx, d.session.ID)
	if err != nil {
		return err
	}
	d.context = reset

	d.emit(ctx, EventContextClear, observability.LevelInfo, map[string]any{
		"session": store.ShortID(d.session.ID),
	})
	return nil
}

func (d *Driver) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	d.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "chat.Driver",
		Data:      data,
	})
}

func (d *Driver) emitError(ctx context.Context, err error) {
	d.emit(ctx, EventTurnError, observability.LevelWarning, map[string]any{
		"session": store.ShortID(d.session.ID),
		"error":   err.Error(),
	})
}
