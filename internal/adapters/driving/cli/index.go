package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

var (
	indexForce bool
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Build the vector index",
	Long: `Chunks, embeds and stores documents in the persistent index.

Without arguments the paths from settings (source.paths) are used. An
existing index is left untouched unless --force is given.

With --watch the command keeps running and re-indexes files as they are
created, changed or removed.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "discard the existing index and rebuild it")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep watching the paths for changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if runtime == nil {
		return errNotConfigured
	}
	ctx := cmd.Context()

	indexer, source, err := runtime.Indexer(ctx, args)
	if err != nil {
		return err
	}

	build := indexer.BuildIfAbsent
	if indexForce {
		build = indexer.Rebuild
	}

	idx, report, err := build(ctx, source)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	defer idx.Close()

	printReport(cmd, report, idx.Count())

	if !indexWatch {
		if n := len(report.Failures); n > 0 {
			return fmt.Errorf("%d documents or chunks failed to index", n)
		}
		return nil
	}

	cmd.Println("Watching for changes (ctrl+c to stop)...")
	err = indexer.Watch(ctx, idx, source, func(change domain.DocumentChange, r *domain.BuildReport, err error) {
		switch {
		case err != nil:
			cmd.PrintErrf("  %s %s: %v\n", change.Type, change.Document.Metadata.Source, err)
		case r != nil && len(r.Failures) > 0:
			for _, f := range r.Failures {
				cmd.PrintErrf("  %s failed %v\n", change.Type, f)
			}
		case r != nil:
			cmd.Printf("  %s %s (%d chunks)\n", change.Type, change.Document.Metadata.Source, r.Inserted)
		default:
			cmd.Printf("  %s %s\n", change.Type, change.Document.Metadata.Source)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printReport(cmd *cobra.Command, r *domain.BuildReport, entries int) {
	if r.Skipped {
		cmd.Printf("Index already exists at %s (%d entries). Use --force to rebuild.\n", r.Location, entries)
		return
	}

	cmd.Printf("Indexed %d documents into %d chunks at %s\n", r.Documents, r.Inserted, r.Location)
	for _, f := range r.Failures {
		cmd.PrintErrf("  failed %v\n", f)
	}
}
