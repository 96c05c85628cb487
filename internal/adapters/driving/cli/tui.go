package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

var chatLineMode bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a conversation about the indexed documents",
	Long: `Starts a multi-turn conversation. Follow-up questions are answered with
the earlier turns in mind, using the strategy from conversation.strategy.

On a terminal the interactive chat UI is launched:
  Enter    - Send question
  Ctrl+L   - Clear the conversation
  Ctrl+S   - Show or hide sources
  PgUp/Dn  - Scroll
  Esc      - Quit

When input is piped, or with --line, each input line is one question and
answers are printed as plain text. Type /clear to reset the history and
/exit to stop.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatLineMode, "line", false, "use plain line mode even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	engine, err := openEngine(cmd)
	if err != nil {
		return err
	}
	if engine.NewConversation == nil {
		return generationUnavailable()
	}
	conv := engine.NewConversation()

	if chatLineMode || !isTerminal(cmd.InOrStdin()) {
		return runLineChat(cmd, conv)
	}
	return runTUI(cmd, conv)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUI(cmd *cobra.Command, conv driving.ConversationService) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(conv, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runLineChat(cmd *cobra.Command, conv driving.ConversationService) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			conv.Clear()
			cmd.Println("Conversation cleared.")
			continue
		}

		answer, err := conv.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}

		printAnswer(cmd, answer, true)
		cmd.Println()
	}
}
