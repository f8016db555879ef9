package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaze-sh/kaze/browser"
	"github.com/kaze-sh/kaze/render"
	"github.com/kaze-sh/kaze/store"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved chat sessions",
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := setup(flags)
			if err != nil {
				return err
			}
			return sessionList(cmd, st)
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a new chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, "")
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a session by id or unique prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, args[0])
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session by id or unique prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := setup(flags)
			if err != nil {
				return err
			}
			return sessionDelete(cmd, st, args[0])
		},
	})

	return sessionCmd
}

func newBrowseCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse sessions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := setup(flags)
			if err != nil {
				return err
			}
			id, err := browser.Run(cmd.Context(), st)
			if err != nil {
				return err
			}
			if id == "" {
				return nil
			}
			return runChat(cmd, flags, id)
		},
	}
}

func sessionList(cmd *cobra.Command, st store.Store) error {
	sessions, err := st.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println(render.Dim("No sessions found."))
		fmt.Printf("Start one with: %s\n", render.Accent("kaze chat"))
		return nil
	}

	const titleWidth = 40
	fmt.Printf("%-10s %-*s %-6s %-18s %s\n", "ID", titleWidth, "TITLE", "MSGS", "UPDATED", "MODEL")
	fmt.Println(strings.Repeat("-", 10+titleWidth+6+18+23))

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		if runes := []rune(title); len(runes) > titleWidth {
			title = string(runes[:titleWidth-3]) + "..."
		}
		// Pad before colorizing so ANSI escapes don't skew column widths.
		idCol := render.Accent(fmt.Sprintf("%-10s", store.ShortID(s.ID)))
		fmt.Printf("%s %-*s %-6d %-18s %s\n",
			idCol,
			titleWidth, title,
			s.MessageCount,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			render.Dim(s.Model),
		)
	}

	fmt.Println()
	fmt.Printf("%s %d sessions. Resume with: %s\n",
		render.Dim("total:"), len(sessions), render.Accent("kaze session resume <id>"))
	return nil
}

func sessionDelete(cmd *cobra.Command, st store.Store, prefix string) error {
	sess, err := st.Resolve(cmd.Context(), prefix)
	if err != nil {
		return err
	}

	title := sess.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("Deleting session %s (%q)\n", render.Accent(store.ShortID(sess.ID)), title)

	if err := st.Delete(cmd.Context(), sess.ID); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}
