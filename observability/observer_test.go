package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kaze-sh/kaze/observability"
)

type recordingObserver struct {
	events []observability.Event
}

func (r *recordingObserver) OnEvent(_ context.Context, event observability.Event) {
	r.events = append(r.events, event)
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  string
	}{
		{observability.LevelVerbose, "DEBUG"},
		{observability.LevelInfo, "INFO"},
		{observability.LevelWarning, "WARN"},
		{observability.LevelError, "ERROR"},
		{observability.Level(2), "TRACE"},
		{observability.Level(22), "FATAL"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{observability.LevelVerbose, slog.LevelDebug},
		{observability.LevelInfo, slog.LevelInfo},
		{observability.LevelWarning, slog.LevelWarn},
		{observability.LevelError, slog.LevelError},
	}
	for _, tt := range tests {
		if got := tt.level.SlogLevel(); got != tt.want {
			t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogObserver_OnEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := observability.NewSlogObserver(logger)

	obs.OnEvent(context.Background(), observability.Event{
		Type:      "chat.turn.complete",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "chat.Driver",
		Data:      map[string]any{"session": "abc12345"},
	})

	out := buf.String()
	for _, want := range []string{"chat.turn.complete", "source=chat.Driver", "session=abc12345", "level=INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestMultiObserver_FansOut(t *testing.T) {
	first := &recordingObserver{}
	second := &recordingObserver{}
	multi := observability.NewMultiObserver(first, nil, second)

	multi.OnEvent(context.Background(), observability.Event{Type: "provider.stream.open"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("event counts = %d, %d, want 1, 1", len(first.events), len(second.events))
	}
	if first.events[0].Type != "provider.stream.open" {
		t.Errorf("event type = %q, want provider.stream.open", first.events[0].Type)
	}
}

func TestNoOpObserver_ImplementsObserver(t *testing.T) {
	var obs observability.Observer = observability.NoOpObserver{}
	obs.OnEvent(context.Background(), observability.Event{Type: "chat.turn.start"})
}
