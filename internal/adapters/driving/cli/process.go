package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

var (
	processDocID string
	processStale bool
)

var processCmd = &cobra.Command{
	Use:   "process [owner-id]",
	Short: "Extract, chunk and index documents",
	Long: `Runs the ingestion pipeline: text extraction (with OCR fallback for
scanned pages), chunking, embedding and vector indexing.

  propdocs process <owner-id>     process every document of an owner
  propdocs process --doc <id>     process a single document
  propdocs process --stale        reprocess documents from an older pipeline`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processDocID, "doc", "", "process a single document")
	processCmd.Flags().BoolVar(&processStale, "stale", false, "reprocess documents from an older pipeline version")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := cmd.Context()

	switch {
	case processDocID != "":
		cmd.Printf("Processing document %s...\n", processDocID)
		result, err := documentService.Process(ctx, processDocID)
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		printProcessResult(cmd, result)

	case processStale:
		cmd.Println("Reprocessing stale documents...")
		n, err := documentService.ReprocessStale(ctx)
		if err != nil {
			return fmt.Errorf("reprocessing failed: %w", err)
		}
		cmd.Printf("Reprocessed %d documents.\n", n)

	case len(args) == 1:
		ownerID := args[0]
		cmd.Printf("Processing documents for owner %s...\n", ownerID)
		results, err := documentService.ProcessOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}
		failed := 0
		for i := range results {
			printProcessResult(cmd, &results[i])
			if results[i].Error != "" {
				failed++
			}
		}
		cmd.Printf("Processed %d documents, %d failed.\n", len(results), failed)

	default:
		return errors.New("specify an owner ID, --doc or --stale")
	}

	return nil
}

func printProcessResult(cmd *cobra.Command, r *driving.ProcessResult) {
	switch {
	case r.Error != "":
		cmd.Printf("  %s: FAILED: %s\n", r.DocumentID, r.Error)
	case r.Cached:
		cmd.Printf("  %s: up to date\n", r.DocumentID)
	default:
		cmd.Printf("  %s: %d pages (%s), %d chunks, %d indexed", r.DocumentID, r.PageCount, r.Method, r.Chunks, r.Indexed)
		if r.SkippedChunks > 0 {
			cmd.Printf(", %d skipped", r.SkippedChunks)
		}
		cmd.Println()
	}
}
