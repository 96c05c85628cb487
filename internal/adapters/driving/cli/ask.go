package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

var (
	askK        int
	askCategory string
	askFilter   map[string]string
	askJSON     bool
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question from the indexed documents",
	Long: `Retrieves the chunks most relevant to the question, places them in the
prompt and asks the configured language model. No history is kept; use
'ragkit chat' for follow-up questions.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	addRetrievalFlags(askCmd, &askK, &askCategory, &askFilter)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and sources as JSON")
	askCmd.Flags().BoolVar(&askSources, "sources", true, "list the chunks the answer was grounded on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	ask, err := requireAsk(engine)
	if err != nil {
		return err
	}

	opts := retrievalOptions(askK, askCategory, askFilter, 0)
	answer, err := ask.Ask(cmd.Context(), args[0], opts...)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, answer)
	}

	printAnswer(cmd, answer, askSources)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer, withSources bool) {
	cmd.Println(answer.Text)
	if !withSources || len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i := range answer.Sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, chunkOrigin(&answer.Sources[i].Chunk), answer.Sources[i].Score)
	}
}
