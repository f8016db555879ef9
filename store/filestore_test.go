package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaze-sh/kaze/core/protocol"
	"github.com/kaze-sh/kaze/store"
)

func newTestStore(t *testing.T) (store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return st, dir
}

func TestFileStore_Create_LogHasOnlySystemMessage(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := st.Create(ctx, "gpt-4o", "openai", "be terse")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() returned empty session id")
	}
	if sess.Title != "" {
		t.Errorf("new session title = %q, want empty until first user turn", sess.Title)
	}

	messages, err := st.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Load() returned %d messages, want 1", len(messages))
	}
	if messages[0].Role != protocol.RoleSystem {
		t.Errorf("first message role = %q, want %q", messages[0].Role, protocol.RoleSystem)
	}
	if messages[0].Content != "be terse" {
		t.Errorf("system content = %q, want %q", messages[0].Content, "be terse")
	}
}

func TestFileStore_Append_RoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, err := st.Create(ctx, "gpt-4o", "openai", "sys")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	want := []protocol.Message{
		protocol.NewMessage(protocol.RoleUser, "first"),
		protocol.NewMessage(protocol.RoleAssistant, "second\nwith newline"),
		protocol.NewMessage(protocol.RoleUser, `third "quoted" — unicode ★`),
	}
	for _, msg := range want {
		if err := st.Append(ctx, sess.ID, msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := st.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want)+1 {
		t.Fatalf("Load() returned %d messages, want %d", len(got), len(want)+1)
	}
	for i, msg := range want {
		if got[i+1].Role != msg.Role {
			t.Errorf("message %d role = %q, want %q", i+1, got[i+1].Role, msg.Role)
		}
		if got[i+1].Content != msg.Content {
			t.Errorf("message %d content = %q, want %q", i+1, got[i+1].Content, msg.Content)
		}
	}
}

func TestFileStore_Append_FreezesTitle(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "gpt-4o", "openai", "sys")

	if err := st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "hi")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "a much later message")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := st.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "hi" {
		t.Errorf("title = %q, want %q (frozen from first user message)", got.Title, "hi")
	}
}

func TestFileStore_Append_TruncatesLongTitle(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "gpt-4o", "openai", "sys")

	long := strings.Repeat("x", 60)
	if err := st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, long)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, _ := st.Get(ctx, sess.ID)
	want := strings.Repeat("x", 50) + "..."
	if got.Title != want {
		t.Errorf("title = %q, want %q", got.Title, want)
	}
}

func TestFileStore_Append_UnknownSession(t *testing.T) {
	st, _ := newTestStore(t)

	err := st.Append(context.Background(), "no-such-id", protocol.NewMessage(protocol.RoleUser, "hi"))
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("Append() error = %v, want %v", err, store.ErrSessionNotFound)
	}
}

func TestFileStore_List_ScenarioOneSession(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "gpt-4o", "openai", "x")
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "hi"))
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleAssistant, "hello"))

	summaries, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("List() returned %d summaries, want 1", len(summaries))
	}

	s := summaries[0]
	if s.ID != sess.ID {
		t.Errorf("summary id = %q, want %q", s.ID, sess.ID)
	}
	if s.MessageCount != 3 {
		t.Errorf("message_count = %d, want 3", s.MessageCount)
	}
	if s.Title != "hi" {
		t.Errorf("title = %q, want %q", s.Title, "hi")
	}
	if s.Model != "gpt-4o" || s.Provider != "openai" {
		t.Errorf("model/provider = %q/%q, want gpt-4o/openai", s.Model, s.Provider)
	}
}

func TestFileStore_List_OrderedByUpdatedAtDescending(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	first, _ := st.Create(ctx, "m", "openai", "sys")
	second, _ := st.Create(ctx, "m", "openai", "sys")

	// Touch the first session again so it becomes the most recent.
	time.Sleep(5 * time.Millisecond)
	if err := st.Append(ctx, first.ID, protocol.NewMessage(protocol.RoleUser, "bump")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	summaries, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("List() returned %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != first.ID {
		t.Errorf("most recent summary = %s, want %s", summaries[0].ID, first.ID)
	}
	if summaries[1].ID != second.ID {
		t.Errorf("older summary = %s, want %s", summaries[1].ID, second.ID)
	}
}

func TestFileStore_Delete(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "m", "openai", "sys")

	if err := st.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, sess.ID+".jsonl")); !os.IsNotExist(err) {
		t.Error("session log file still exists after Delete()")
	}
	summaries, _ := st.List(ctx)
	if len(summaries) != 0 {
		t.Errorf("List() returned %d summaries after Delete(), want 0", len(summaries))
	}
}

func TestFileStore_Delete_NotFound(t *testing.T) {
	st, dir := newTestStore(t)

	// A stray log file without an index entry must not make the id
	// deletable.
	strayID := "deadbeef-0000-0000-0000-000000000000"
	if err := os.WriteFile(filepath.Join(dir, strayID+".jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := st.Delete(context.Background(), strayID)
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, store.ErrSessionNotFound)
	}
}

func TestFileStore_ClearContext_Idempotent(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "m", "openai", "sys prompt")
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "hi"))
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleAssistant, "hello"))

	for i := 0; i < 2; i++ {
		reset, err := st.ClearContext(ctx, sess.ID)
		if err != nil {
			t.Fatalf("ClearContext() call %d error = %v", i+1, err)
		}
		if len(reset) != 1 {
			t.Fatalf("ClearContext() call %d returned %d messages, want 1", i+1, len(reset))
		}
		if reset[0].Role != protocol.RoleSystem || reset[0].Content != "sys prompt" {
			t.Errorf("ClearContext() call %d = %q %q, want system %q", i+1, reset[0].Role, reset[0].Content, "sys prompt")
		}
	}

	// The persisted log keeps the full audit trail.
	messages, _ := st.Load(ctx, sess.ID)
	if len(messages) != 3 {
		t.Errorf("log has %d messages after ClearContext(), want 3", len(messages))
	}
}

func TestFileStore_Load_IgnoresTornFinalLine(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "m", "openai", "sys")
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "hi"))

	// Simulate a crash mid-append: a partial JSON line at the end.
	f, err := os.OpenFile(filepath.Join(dir, sess.ID+".jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"role":"assistant","content":"trunc`)
	f.Close()

	messages, err := st.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("Load() returned %d messages, want 2 (torn line ignored)", len(messages))
	}
}

func TestFileStore_Load_MissingLogIsInconsistent(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "m", "openai", "sys")
	if err := os.Remove(filepath.Join(dir, sess.ID+".jsonl")); err != nil {
		t.Fatal(err)
	}

	_, err := st.Load(ctx, sess.ID)
	if !errors.Is(err, store.ErrInconsistent) {
		t.Errorf("Load() error = %v, want %v", err, store.ErrInconsistent)
	}
}

func TestFileStore_Load_NotFound(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Load(context.Background(), "missing")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("Load() error = %v, want %v", err, store.ErrSessionNotFound)
	}
}

func TestFileStore_IndexIsValidJSON(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()

	sess, _ := st.Create(ctx, "m", "openai", "sys")
	st.Append(ctx, sess.ID, protocol.NewMessage(protocol.RoleUser, "hi"))

	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("reading index.json: %v", err)
	}
	index := map[string]store.Summary{}
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatalf("index.json is not a valid id → summary map: %v", err)
	}
	if _, ok := index[sess.ID]; !ok {
		t.Errorf("index.json missing entry for %s", sess.ID)
	}
}
