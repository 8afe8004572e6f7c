package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

var (
	queryK     int
	queryOwner string
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the nearest chunks for a query",
	Long: `Masks PII in the query, embeds it and returns the nearest indexed
chunks ordered by ascending squared L2 distance.

Use --owner to restrict results to chunks attributed to one customer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of results (default retrieval.k)")
	queryCmd.Flags().StringVar(&queryOwner, "owner", "", "only chunks owned by this customer id")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

// queryResult is the JSON shape of one hit.
type queryResult struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Owner      string  `json:"owner,omitempty"`
	Distance   float64 `json:"distance"`
	Text       string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requireService(retrievalService != nil, "retrieval service"); err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if maskingService != nil {
		text, _ = maskingService.Mask(text)
	}

	opts := domain.QueryOptions{K: queryK}
	if queryOwner != "" {
		opts.Filter = domain.OwnerFilter(queryOwner)
	}

	results, err := retrievalService.Query(cmd.Context(), text, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		out := make([]queryResult, len(results))
		for i, r := range results {
			out[i] = queryResult{
				Source:     r.Metadata.Source,
				ChunkIndex: r.Metadata.ChunkIndex,
				Owner:      r.Metadata.Owner(),
				Distance:   r.Score,
				Text:       r.Text,
			}
		}
		return printJSON(cmd, out)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.4f)\n", i+1, r.Label(), r.Score)
		if owner := r.Metadata.Owner(); owner != "" {
			cmd.Printf("      Owner: %s\n", owner)
		}
		cmd.Printf("      %s\n\n", snippet(r.Text, 200))
	}
	return nil
}

// snippet collapses whitespace and cuts s to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
