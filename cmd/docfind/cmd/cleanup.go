package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCleanupCmd creates the cleanup command.
func newCleanupCmd() *cobra.Command {
	var (
		olderThan  time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove index entries older than a given age",
		Long: `Delete index entries whose last indexing is older than --older-than.
The pass is idempotent: running it twice removes nothing the second time.
Without --older-than the configured staleness threshold is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			age := olderThan
			if age == 0 {
				age = eng.cfg.StaleThreshold()
			}

			removed, err := eng.manager.CleanupOlderThan(cmd.Context(), age)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"older_than": age.String(),
					"removed":    removed,
				})
			}
			fmt.Fprintf(out, "removed %d index entr(ies) older than %s\n", removed, age)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age threshold (e.g. 72h); defaults to the staleness threshold")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}
