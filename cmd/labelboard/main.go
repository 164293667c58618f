package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"labelboard/internal/app"
	"labelboard/internal/editor"
	"labelboard/internal/store"
	"labelboard/pkg/diagram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "labelboard: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbPath   string
		session  string
		user     string
		viewOnly bool
	)

	cmd := &cobra.Command{
		Use:   "labelboard",
		Short: "Diagram canvas editor for images, shapes and labels",
		Long: `labelboard opens an 800x600 diagram canvas for placing images,
drawing shapes and anchoring labels. With --db the document autosaves
into a SQLite store keyed by session id; without it, boards are opened
and saved as .lbd files from the menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dbPath, session, user, viewOnly)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path for session autosave")
	cmd.Flags().StringVar(&session, "session", "default", "session id the document is stored under")
	cmd.Flags().StringVar(&user, "user", "local", "user id for permission checks")
	cmd.Flags().BoolVar(&viewOnly, "view-only", false, "open the document without editing")

	return cmd
}

func run(ctx context.Context, dbPath, session, user string, viewOnly bool) error {
	var (
		st    *store.SQLiteStore
		saver *store.Autosaver
		doc   *diagram.Diagram
	)

	if dbPath != "" {
		var err error
		st, err = store.OpenSQLite(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		doc, err = st.LoadDiagram(ctx, session)
		if err != nil {
			return fmt.Errorf("load session %q: %w", session, err)
		}

		perm, err := st.Permission(ctx, session, user)
		if err != nil {
			return fmt.Errorf("resolve permission: %w", err)
		}
		if perm == store.PermissionOwner {
			// First opener owns the session from then on.
			if err := st.GrantPermission(ctx, session, user, store.PermissionOwner); err != nil {
				return fmt.Errorf("record owner: %w", err)
			}
		}
		if perm == store.PermissionView {
			viewOnly = true
		}

		saver = store.NewAutosaver(st, session, time.Second)
	}

	if doc == nil {
		doc = diagram.New("Untitled")
	}
	state := editor.NewState(doc)
	state.ReadOnly = viewOnly

	application := app.New(state, saver)
	runErr := application.Run()

	if saver != nil {
		saver.Stop()
		if err := saver.Flush(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "labelboard: final save: %v\n", err)
		}
	}
	return runErr
}
