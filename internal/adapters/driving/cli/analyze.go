package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

var (
	analyzeForce  bool
	analyzeAsync  bool
	analyzeStatus bool
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze [doc-id]",
	Aliases: []string{"analyse"},
	Short:   "Run deep analysis of a document",
	Long: `Runs the type-specific analysis of one document and prints the
Markdown report. A completed analysis is returned as-is unless --force is set.

Use --async to queue the run and return, and --status to poll it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeForce, "force", "f", false, "rerun even if a completed analysis exists")
	analyzeCmd.Flags().BoolVar(&analyzeAsync, "async", false, "queue the analysis and return immediately")
	analyzeCmd.Flags().BoolVar(&analyzeStatus, "status", false, "show the current analysis status without running")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the analysis snapshot as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	docID := args[0]
	ctx := cmd.Context()

	var (
		snap domain.AnalysisSnapshot
		err  error
	)
	switch {
	case analyzeStatus:
		snap, err = analysisService.Status(ctx, docID)
	case analyzeAsync:
		snap, err = analysisService.Enqueue(ctx, docID, analyzeForce)
	default:
		snap, err = analysisService.StartOrRefresh(ctx, docID, analyzeForce)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return printJSON(cmd, snap)
	}

	switch snap.Status {
	case domain.StatusCompleted:
		cmd.Println(snap.Result)
		cmd.Printf("\n(%d input tokens, %d output tokens)\n", snap.Usage.InputTokens, snap.Usage.OutputTokens)
	case domain.StatusFailed:
		return fmt.Errorf("analysis failed: %s", snap.Error)
	case domain.StatusUnsupported:
		cmd.Println(snap.Message)
	default:
		cmd.Printf("Analysis %s: %d%%", snap.Status, snap.Progress)
		if snap.Message != "" {
			cmd.Printf(" %s", snap.Message)
		}
		cmd.Println()
	}

	return nil
}
