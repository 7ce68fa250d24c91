package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui"
)

var tuiOwner string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for one property.

Ask questions with streamed, cited answers, browse and process documents,
read extracted text and analyses, and search passages.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Send / Select
  Esc      - Back / Cancel answer
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiOwner, "owner", "o", "", "owner (property) ID to open")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if tuiOwner == "" {
		return errors.New("--owner is required")
	}

	ports := &tui.Ports{
		Search:    searchService,
		Documents: documentService,
		Analysis:  analysisService,
		Chat:      chatService,
	}

	app, err := tui.NewApp(ports, tuiOwner)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	// TUI is long-running, needs background tasks
	stopScheduler := startScheduler(cmd.Context())
	defer stopScheduler()

	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
