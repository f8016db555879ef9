// Package render formats conversation output for the terminal: colored
// role labels, markdown rendering of assistant messages, and error
// lines.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/kaze-sh/kaze/core/protocol"
	"github.com/kaze-sh/kaze/store"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	userLabel   = color.New(color.FgGreen, color.Bold)
	kazeLabel   = color.New(color.FgCyan, color.Bold)
	errLabel    = color.New(color.FgRed, color.Bold)
	dim         = color.New(color.Faint)
	accent      = color.New(color.FgYellow)
)

// Prompt returns the colored REPL prompt.
func Prompt() string {
	return promptColor.Sprint("> ")
}

// Dim returns s in faint styling.
func Dim(s string) string {
	return dim.Sprint(s)
}

// Accent returns s in the accent color.
func Accent(s string) string {
	return accent.Sprint(s)
}

// Errorf formats a one-line user-facing error.
func Errorf(format string, args ...any) string {
	return errLabel.Sprint("error: ") + fmt.Sprintf(format, args...)
}

// Markdown renders assistant markdown for the terminal via glamour,
// falling back to the raw text when rendering fails.
func Markdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Message formats one conversation message with a role label, rendering
// assistant content as markdown. System messages render empty; callers
// skip them when replaying history.
func Message(msg protocol.Message) string {
	switch msg.Role {
	case protocol.RoleUser:
		return userLabel.Sprint("you: ") + msg.Content
	case protocol.RoleAssistant:
		return kazeLabel.Sprint("kaze: ") + Markdown(msg.Content)
	default:
		return ""
	}
}

// Banner formats the session header shown when starting or resuming.
func Banner(action string, sess store.Session) string {
	return fmt.Sprintf("%s [session: %s] [model: %s]",
		kazeLabel.Sprint(action),
		accent.Sprint(store.ShortID(sess.ID)),
		accent.Sprint(sess.Model),
	)
}
