package chat

import (
	"context"
	"fmt"

	"github.com/kaze-sh/kaze/core/protocol"
	"github.com/kaze-sh/kaze/render"
)

// handleCommand dispatches a slash command. Unknown commands print a
// hint; the loop always continues.
func (r *REPL) handleCommand(ctx context.Context, line string) {
	switch line {
	case "/history":
		for _, msg := range r.driver.Context() {
			if msg.Role == protocol.RoleSystem {
				continue
			}
			fmt.Fprintln(r.out, render.Message(msg))
			fmt.Fprintln(r.out)
		}
	case "/clear":
		if err := r.driver.Clear(ctx); err != nil {
			fmt.Fprintln(r.out, render.Errorf("%v", err))
			return
		}
		fmt.Fprintln(r.out, render.Dim("History cleared."))
	case "/help":
		fmt.Fprintln(r.out, "Commands:")
		fmt.Fprintf(r.out, "  %s - show conversation history\n", render.Accent("/history"))
		fmt.Fprintf(r.out, "  %s - clear conversation\n", render.Accent("/clear"))
		fmt.Fprintf(r.out, "  %s - show this help\n", render.Accent("/help"))
		fmt.Fprintf(r.out, "  %s - exit\n", render.Accent("Ctrl+D"))
	default:
		fmt.Fprintf(r.out, "%s Unknown command: %s\n", render.Accent("?"), line)
	}
}
