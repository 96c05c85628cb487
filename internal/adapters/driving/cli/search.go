package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

var (
	searchK        int
	searchCategory string
	searchFilter   map[string]string
	searchMinScore float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve the chunks most relevant to a query",
	Long: `Embeds the query and returns the k closest chunks from the index, best
first. Results can be narrowed with metadata filters:

  ragkit search "quarterly budget" --category meeting
  ragkit search "hiring plan" --filter source=notes/beta.md`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	addRetrievalFlags(searchCmd, &searchK, &searchCategory, &searchFilter)
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this value")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// addRetrievalFlags registers the flags shared by search and ask.
func addRetrievalFlags(cmd *cobra.Command, k *int, category *string, filter *map[string]string) {
	cmd.Flags().IntVar(k, "k", 0, "number of chunks to retrieve (0 = configured default)")
	cmd.Flags().StringVar(category, "category", "", "only match chunks in this category")
	cmd.Flags().StringToStringVar(filter, "filter", nil, "metadata equality filter, key=value (repeatable)")
}

// retrievalOptions turns flag values into retrieve options.
func retrievalOptions(k int, category string, filter map[string]string, minScore float64) []domain.RetrieveOption {
	var opts []domain.RetrieveOption
	if k > 0 {
		opts = append(opts, domain.WithK(k))
	}

	equals := make(map[string]string, len(filter)+1)
	for key, v := range filter {
		equals[key] = v
	}
	if category != "" {
		equals["category"] = category
	}
	if len(equals) > 0 {
		opts = append(opts, domain.WithFilter(domain.Filter{Equals: equals}))
	}

	if minScore != 0 {
		opts = append(opts, domain.WithMinScore(minScore))
	}
	return opts
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}

	opts := retrievalOptions(searchK, searchCategory, searchFilter, searchMinScore)
	results, err := engine.Retriever.Retrieve(cmd.Context(), args[0], opts...)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}

	outputSearchTable(cmd, results)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i].Chunk
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, chunkOrigin(c), results[i].Score)
		if c.Metadata.Category != "" {
			cmd.Printf("      Category: %s\n", c.Metadata.Category)
		}
		cmd.Printf("      %s\n", snippet(c.Text, 160))
		cmd.Println()
	}
}

func chunkOrigin(c *domain.Chunk) string {
	if c.Metadata.Source != "" {
		return fmt.Sprintf("%s #%d", c.Metadata.Source, c.Position)
	}
	return c.ID
}

// snippet collapses whitespace and truncates to n bytes.
func snippet(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
