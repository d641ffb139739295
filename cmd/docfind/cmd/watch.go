package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docyard/docfind/internal/extract"
	"github.com/docyard/docfind/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and keep its documents indexed",
		Long: `Watch a directory tree for document changes. Created and modified
documents are (re)indexed after events settle; deleted documents are
removed from the index. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			supports := extract.NewTextExtractor().Supports
			deb := watcher.NewDebouncer(eng.cfg.DebounceWindow())
			w, err := watcher.New(args[0], deb, supports, eng.log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", args[0])

			onChange := func(ctx context.Context, path string) error {
				_, err := eng.manager.EnsureIndexed(ctx, path)
				return err
			}
			onRemove := func(ctx context.Context, path string) error {
				_, err := eng.manager.RemoveByName(ctx, path)
				return err
			}

			err = w.Run(ctx, onChange, onRemove)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
	return cmd
}
