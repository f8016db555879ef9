package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kaze-sh/kaze/provider"
	"github.com/kaze-sh/kaze/render"
)

// REPL is the interactive conversation loop around one driver. Ctrl+C
// cancels the current input or in-flight stream and stays alive; Ctrl+D
// exits cleanly.
type REPL struct {
	driver      *Driver
	out         io.Writer
	historyPath string
}

// NewREPL creates a REPL writing to out. historyPath names the readline
// history file; "" disables persistent history.
func NewREPL(driver *Driver, out io.Writer, historyPath string) *REPL {
	return &REPL{driver: driver, out: out, historyPath: historyPath}
}

// Run processes prompts until end-of-input or a fatal readline error.
// Provider and session errors are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	if r.historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyPath), 0o755); err != nil {
			// History is a convenience; run without it.
			r.historyPath = ""
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          render.Prompt(),
		HistoryFile:     r.historyPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "goodbye.",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.out, render.Dim("goodbye."))
			return nil
		case err != nil:
			return fmt.Errorf("readline failed: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			r.handleCommand(ctx, line)
			continue
		}

		r.runTurn(ctx, line)
	}
}

// runTurn streams one exchange, printing tokens as they arrive. An
// interrupt during the stream cancels the turn; the REPL survives.
func (r *REPL) runTurn(ctx context.Context, line string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out)
	_, err := r.driver.Turn(turnCtx, line, func(c provider.Chunk) {
		fmt.Fprint(r.out, c.Text)
	})
	fmt.Fprintln(r.out)

	switch {
	case err == nil:
		fmt.Fprintln(r.out)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.out, render.Dim("^C interrupted"))
	default:
		fmt.Fprintln(r.out, render.Errorf("%v", err))
	}
}
