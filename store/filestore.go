package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kaze-sh/kaze/core/protocol"
)

const (
	indexFilename = "index.json"
	logExtension  = ".jsonl"
	titleMaxRunes = 50
)

type fileStore struct {
	dir string
}

// NewFileStore creates a Store rooted at dir, creating the directory if
// needed.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) logPath(id string) string {
	return filepath.Join(s.dir, id+logExtension)
}

func (s *fileStore) indexPath() string {
	return filepath.Join(s.dir, indexFilename)
}

func (s *fileStore) Create(_ context.Context, model, provider, systemPrompt string) (Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	sys := protocol.Message{Role: protocol.RoleSystem, Content: systemPrompt, Timestamp: now}

	// Log first, index second: the invariant is that every indexed id
	// has a log, not the reverse.
	if err := s.appendLine(id, sys); err != nil {
		return Session{}, err
	}

	entry := Summary{
		Model:        model,
		Provider:     provider,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: 1,
	}

	index, err := s.loadIndex()
	if err != nil {
		return Session{}, err
	}
	index[id] = entry
	if err := s.writeIndex(index); err != nil {
		return Session{}, err
	}

	return entry.session(id), nil
}

func (s *fileStore) Append(_ context.Context, id string, msg protocol.Message) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	entry, ok := index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, ShortID(id))
	}

	if err := s.appendLine(id, msg); err != nil {
		return err
	}

	entry.UpdatedAt = time.Now().UTC()
	entry.MessageCount++
	if msg.Role == protocol.RoleUser && entry.Title == "" {
		entry.Title = deriveTitle(msg.Content)
	}

	index[id] = entry
	return s.writeIndex(index)
}

func (s *fileStore) Load(_ context.Context, id string) ([]protocol.Message, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if _, ok := index[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ShortID(id))
	}
	return s.readLog(id)
}

func (s *fileStore) Get(_ context.Context, id string) (Session, error) {
	index, err := s.loadIndex()
	if err != nil {
		return Session{}, err
	}
	entry, ok := index[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, ShortID(id))
	}
	return entry.session(id), nil
}

func (s *fileStore) List(_ context.Context) ([]Summary, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(index))
	for id, entry := range index {
		entry.ID = id
		summaries = append(summaries, entry)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

func (s *fileStore) Delete(_ context.Context, id string) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, ShortID(id))
	}

	// Index entry first so a crash between the two steps cannot leave
	// an indexed id without a log.
	delete(index, id)
	if err := s.writeIndex(index); err != nil {
		return err
	}

	if err := os.Remove(s.logPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session log: %w", err)
	}
	return nil
}

func (s *fileStore) ClearContext(ctx context.Context, id string) ([]protocol.Message, error) {
	messages, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 || messages[0].Role != protocol.RoleSystem {
		return nil, fmt.Errorf("%w: session %s log does not start with a system message", ErrInconsistent, ShortID(id))
	}
	return []protocol.Message{messages[0]}, nil
}

func (s *fileStore) Resolve(_ context.Context, prefix string) (Session, error) {
	if prefix == "" {
		return Session{}, fmt.Errorf("%w: empty id", ErrNoMatch)
	}

	index, err := s.loadIndex()
	if err != nil {
		return Session{}, err
	}

	// Exact full-id match short-circuits the scan.
	if entry, ok := index[prefix]; ok {
		return entry.session(prefix), nil
	}

	var ids []string
	for id := range index {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	switch len(ids) {
	case 0:
		return Session{}, fmt.Errorf("%w: %q", ErrNoMatch, prefix)
	case 1:
		return index[ids[0]].session(ids[0]), nil
	default:
		candidates := make([]Candidate, len(ids))
		for i, id := range ids {
			candidates[i] = Candidate{ShortID: ShortID(id), Title: index[id].Title}
		}
		return Session{}, &AmbiguousError{Prefix: prefix, Candidates: candidates}
	}
}

// appendLine durably writes one message as a JSON line at the end of the
// session log.
func (s *fileStore) appendLine(id string, msg protocol.Message) error {
	f, err := os.OpenFile(s.logPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append to session log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync session log: %w", err)
	}
	return nil
}

// readLog replays a session log in write order. A partially written
// final line (crash mid-append) is ignored; a malformed line in the
// middle of the log is an inconsistency.
func (s *fileStore) readLog(id string) ([]protocol.Message, error) {
	f, err := os.Open(s.logPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: index entry %s has no log file", ErrInconsistent, ShortID(id))
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var messages []protocol.Message
	var pendingErr error

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if pendingErr != nil {
			// A malformed line followed by more records is corruption,
			// not a torn final append.
			return nil, pendingErr
		}
		var msg protocol.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			pendingErr = fmt.Errorf("%w: session %s log line %d: %v", ErrInconsistent, ShortID(id), len(messages)+1, err)
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}

	return messages, nil
}

func (s *fileStore) loadIndex() (map[string]Summary, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Summary{}, nil
		}
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	index := map[string]Summary{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse session index: %w", err)
	}
	return index, nil
}

// writeIndex replaces the index atomically: write to a temp file in the
// same directory, then rename over the old index.
func (s *fileStore) writeIndex(index map[string]Summary) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session index: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-index-*")
	if err != nil {
		return fmt.Errorf("failed to write session index: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session index: %w", err)
	}
	if err := os.Rename(tmpName, s.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session index: %w", err)
	}
	return nil
}

// deriveTitle freezes a session title from its first user message,
// truncated to 50 characters.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return string(runes[:titleMaxRunes]) + "..."
}
