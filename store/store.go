// Package store persists conversation sessions. Each session is an
// append-only JSONL file of messages (the durable source of truth) plus
// one entry in a shared index.json (a derived summary used for listing
// and prefix resolution without reading transcripts).
package store

import (
	"context"
	"time"

	"github.com/kaze-sh/kaze/core/protocol"
)

// Session is the identity and metadata of one persisted conversation.
// Identity is the UUID; Title is derived from the first user message and
// immutable afterwards.
type Session struct {
	ID        string
	Title     string
	Model     string
	Provider  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the lightweight per-session record kept in the index.
type Summary struct {
	ID           string    `json:"-"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store owns the on-disk session files and the index. Implementations
// are single-writer within a process; cross-process access is not
// coordinated.
type Store interface {
	// Create allocates a new session, writes the system prompt as the
	// first log entry, and inserts an index entry with message count 1.
	// The title stays empty until the first user turn.
	Create(ctx context.Context, model, provider, systemPrompt string) (Session, error)
	// Append durably writes one message to the session log and updates
	// the index entry. The first user-role message freezes the title.
	Append(ctx context.Context, id string, msg protocol.Message) error
	// Load replays the full message log in write order.
	Load(ctx context.Context, id string) ([]protocol.Message, error)
	// Get returns the session metadata from the index.
	Get(ctx context.Context, id string) (Session, error)
	// List returns all session summaries, most recently updated first.
	// Reads the index only.
	List(ctx context.Context) ([]Summary, error)
	// Delete removes the log file and the index entry. Fails with
	// ErrSessionNotFound when the id is absent from the index, even if
	// a stray log file exists.
	Delete(ctx context.Context, id string) error
	// ClearContext returns the reset in-memory context for a session:
	// exactly its system message. The persisted log is never mutated,
	// so the call is idempotent and the audit trail survives.
	ClearContext(ctx context.Context, id string) ([]protocol.Message, error)
	// Resolve matches a full id or any leading substring of one against
	// the index. See errors.go for the no-match and ambiguity contract.
	Resolve(ctx context.Context, prefix string) (Session, error)
}

// ShortID returns the display form of a session id: its first 8 hex
// characters. Purely presentational; prefix matching accepts longer
// prefixes too.
func ShortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

func (s Summary) session(id string) Session {
	return Session{
		ID:        id,
		Title:     s.Title,
		Model:     s.Model,
		Provider:  s.Provider,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
