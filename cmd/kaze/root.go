package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaze-sh/kaze/chat"
	"github.com/kaze-sh/kaze/config"
	"github.com/kaze-sh/kaze/observability"
	"github.com/kaze-sh/kaze/provider"
	"github.com/kaze-sh/kaze/render"
	"github.com/kaze-sh/kaze/store"
)

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	provider   string
	model      string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "kaze",
		Short: "kaze is a terminal chat client for LLM providers",
		Long: "kaze talks to Anthropic, OpenAI, OpenRouter, and Ollama from the\n" +
			"terminal, streaming responses and persisting conversations as\n" +
			"resumable sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, "")
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default ~/.config/kaze/config.json)")
	root.PersistentFlags().StringVarP(&flags.provider, "provider", "p", "", "provider to use (anthropic, openai, openrouter, ollama)")
	root.PersistentFlags().StringVarP(&flags.model, "model", "m", "", "model id, or provider/model shorthand")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging to stderr")

	root.AddCommand(newChatCmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newBrowseCmd(flags))

	return root
}

// printError formats a core error for the user. AmbiguousError carries a
// partial result (the candidates) that is displayed before the failure.
func printError(err error) {
	var ambiguous *store.AmbiguousError
	if errors.As(err, &ambiguous) {
		fmt.Fprintf(os.Stderr, "%s\n", render.Errorf("multiple sessions match %q:", ambiguous.Prefix))
		for _, c := range ambiguous.Candidates {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(os.Stderr, "  %s %s\n", render.Accent(c.ShortID), render.Dim(title))
		}
		fmt.Fprintln(os.Stderr, "Provide more characters to disambiguate.")
		return
	}
	fmt.Fprintln(os.Stderr, render.Errorf("%v", err))
}

// setup loads config, opens the session store, and builds the observer.
func setup(flags *rootFlags) (*config.Config, store.Store, observability.Observer, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.NewFileStore(cfg.ResolveSessionsDir())
	if err != nil {
		return nil, nil, nil, err
	}

	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observer := observability.NewSlogObserver(logger)

	return cfg, st, observer, nil
}

// buildProvider resolves the provider/model selection and constructs the
// dispatcher. Credential checks happen here, before any session is
// touched.
func buildProvider(cfg *config.Config, flags *rootFlags) (provider.Provider, error) {
	sel, err := config.ResolveSelection(flags.provider, flags.model, cfg)
	if err != nil {
		return nil, err
	}
	return provider.New(cfg.ProviderConfig(sel))
}

func runChat(cmd *cobra.Command, flags *rootFlags, resumeID string) error {
	cfg, st, observer, err := setup(flags)
	if err != nil {
		return err
	}
	p, err := buildProvider(cfg, flags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var driver *chat.Driver
	if resumeID == "" {
		driver, err = chat.StartNew(ctx, st, p, cfg.SystemPrompt, chat.WithObserver(observer))
		if err != nil {
			return err
		}
		fmt.Println(render.Banner("kaze chat", driver.Session()), render.Dim("(Ctrl+D to exit)"))
		fmt.Println()
	} else {
		sess, err := st.Resolve(ctx, resumeID)
		if err != nil {
			return err
		}
		driver, err = chat.Resume(ctx, st, p, sess.ID, chat.WithObserver(observer))
		if err != nil {
			return err
		}
		fmt.Println(render.Banner("resuming", driver.Session()))
		fmt.Println()
		for _, msg := range driver.Context() {
			if line := render.Message(msg); line != "" {
				fmt.Println(line)
				fmt.Println()
			}
		}
	}

	repl := chat.NewREPL(driver, os.Stdout, config.HistoryPath())
	return repl.Run(ctx)
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a new interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, "")
		},
	}
}
