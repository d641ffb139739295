package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docyard/docfind/internal/store"
	"github.com/docyard/docfind/internal/ui"
)

// searchHit is the JSON shape of one result.
type searchHit struct {
	Document  string  `json:"document"`
	Hash      string  `json:"hash"`
	ChunkID   int     `json:"chunk_id"`
	UnitLabel string  `json:"unit_label"`
	Offset    int     `json:"offset"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var (
		all        bool
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <file-or-hash> <query> | search --all <query>",
		Short: "Search within a document or across the index",
		Long: `Search a document with a bilingual full-text query. The document is
indexed first if needed. A 64-character hexadecimal argument is treated
as a content hash and searched directly. With --all, the query runs
against every indexed document instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			var hits []store.Hit
			var query string
			if all {
				if len(args) != 1 {
					return fmt.Errorf("--all takes a single query argument")
				}
				query = args[0]
				hits, err = eng.search.SearchAll(cmd.Context(), query, limit)
			} else {
				if len(args) != 2 {
					return fmt.Errorf("expected <file> <query> (or use --all)")
				}
				query = args[1]
				hits, err = eng.search.Search(cmd.Context(), args[0], query, limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				payload := make([]searchHit, 0, len(hits))
				for _, h := range hits {
					payload = append(payload, searchHit{
						Document:  h.DocName,
						Hash:      h.Hash,
						ChunkID:   h.ChunkID,
						UnitLabel: h.UnitLabel,
						Offset:    h.Offset,
						Score:     h.Score,
						Text:      h.Text,
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}

			ui.NewPrinter(out).Hits(query, hits)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Search across all indexed documents")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}
