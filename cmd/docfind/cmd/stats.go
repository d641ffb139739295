package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/docyard/docfind/internal/ui"
)

// statsReport is the JSON shape of the stats command output.
type statsReport struct {
	Documents     int    `json:"documents"`
	Chunks        int    `json:"chunks"`
	Tokens        int64  `json:"tokens"`
	DistinctTerms int    `json:"distinct_terms"`
	DocumentBytes int64  `json:"document_bytes"`
	SizeBytes     int64  `json:"size_bytes"`
	OldestIndexed string `json:"oldest_indexed,omitempty"`
	NewestIndexed string `json:"newest_indexed,omitempty"`
}

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			st, err := eng.manager.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				report := statsReport{
					Documents:     st.DocumentCount,
					Chunks:        st.ChunkCount,
					Tokens:        st.TokenCount,
					DistinctTerms: st.TermCount,
					DocumentBytes: st.DocumentBytes,
					SizeBytes:     st.SizeBytes,
				}
				if !st.OldestIndexed.IsZero() {
					report.OldestIndexed = st.OldestIndexed.Format(time.RFC3339)
					report.NewestIndexed = st.NewestIndexed.Format(time.RFC3339)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			ui.NewPrinter(out).Stats(st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")
	return cmd
}
