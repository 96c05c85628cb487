// Package cli provides the ragkit command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Source loads documents and reports changes to them.
type Source interface {
	driven.DocumentSource
	driven.DocumentWatcher
}

// Engine holds the query-side services over an open index.
type Engine struct {
	// Report describes the build-if-absent pass that opened the index.
	Report *domain.BuildReport

	// Empty is set when no index exists and there was nothing to build one
	// from. Queries then return no results and nothing is persisted.
	Empty bool

	// Retriever is always set.
	Retriever driving.Retriever

	// Ask and NewConversation are nil when no LLM is reachable.
	Ask             driving.AskService
	NewConversation func() driving.ConversationService

	// Sessions is nil when no LLM is reachable.
	Sessions driving.SessionRegistry
}

// Runtime opens core services on demand so commands such as version and
// settings never touch providers or the index.
type Runtime interface {
	// Indexer returns the index service and a source over paths, or over
	// the configured paths when paths is empty.
	Indexer(ctx context.Context, paths []string) (driving.IndexService, Source, error)

	// Engine builds the index if absent and returns the query services.
	Engine(ctx context.Context) (*Engine, error)

	// Close releases provider clients and the index.
	Close() error
}

var (
	settingsService driving.SettingsService
	runtime         Runtime
)

var errNotConfigured = errors.New("ragkit is not configured")

var rootCmd = &cobra.Command{
	Use:   "ragkit",
	Short: "Retrieval-augmented question answering over local documents",
	Long: `ragkit chunks and embeds your documents into a persistent vector index,
retrieves the passages most relevant to a question, and asks a language
model to answer from them, optionally across a multi-turn conversation.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetServices injects the services commands run against.
func SetServices(settings driving.SettingsService, rt Runtime) {
	settingsService = settings
	runtime = rt
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openEngine builds the index if needed and reports what happened.
func openEngine(cmd *cobra.Command) (*Engine, error) {
	if runtime == nil {
		return nil, errNotConfigured
	}
	engine, err := runtime.Engine(cmd.Context())
	if err != nil {
		return nil, err
	}
	if engine.Empty {
		location := ""
		if engine.Report != nil {
			location = " at " + engine.Report.Location
		}
		cmd.PrintErrf("No index%s yet: run 'ragkit index <paths>' or set source.paths to build one.\n", location)
		if r := engine.Report; r != nil && len(r.Failures) > 0 {
			cmd.PrintErrf("  %d files could not be read (run with --verbose for details)\n", len(r.Failures))
		}
		return engine, nil
	}
	if r := engine.Report; r != nil && !r.Skipped {
		cmd.PrintErrf("Built index at %s: %d documents, %d chunks\n", r.Location, r.Documents, r.Inserted)
		if len(r.Failures) > 0 {
			cmd.PrintErrf("  %d chunks failed (run with --verbose for details)\n", len(r.Failures))
		}
	}
	return engine, nil
}

// requireAsk returns the ask service or explains why generation is off.
func requireAsk(engine *Engine) (driving.AskService, error) {
	if engine.Ask == nil {
		return nil, generationUnavailable()
	}
	return engine.Ask, nil
}

func generationUnavailable() error {
	return fmt.Errorf("%w: configure one with 'ragkit settings llm'", domain.ErrLLMUnavailable)
}
