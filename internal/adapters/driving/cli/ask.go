package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

var (
	askJSON    bool
	askStream  bool
	askHistory string
)

var askCmd = &cobra.Command{
	Use:   "ask [owner-id] [question...]",
	Short: "Ask a question about a property",
	Long: `Answers a question using the owner's documents and background facts,
citing the documents the answer relies on.

On a terminal the answer streams as it is generated. When output is piped
the completed answer is printed as JSON. --json and --stream override this.

--history reads earlier turns from a YAML list of {role, content} entries.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the completed answer as JSON")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as text")
	askCmd.Flags().StringVar(&askHistory, "history", "", "YAML file with prior conversation turns")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	req := domain.ChatRequest{
		OwnerID:  args[0],
		Question: strings.Join(args[1:], " "),
	}
	if askHistory != "" {
		history, err := loadHistory(askHistory)
		if err != nil {
			return err
		}
		req.History = history
	}

	events, err := chatService.Answer(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askStreaming(cmd.OutOrStdout()) {
		return streamAnswer(cmd, events)
	}
	return collectAnswer(cmd, events)
}

// askStreaming reports whether the answer is streamed as text.
func askStreaming(out io.Writer) bool {
	if askJSON {
		return false
	}
	if askStream {
		return true
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func streamAnswer(cmd *cobra.Command, events <-chan domain.ChatEvent) error {
	printed := false
	for ev := range events {
		switch ev.Type {
		case domain.ChatEventContent:
			cmd.Print(ev.Content)
			printed = printed || ev.Content != ""
		case domain.ChatEventError:
			if printed {
				cmd.Println()
			}
			return fmt.Errorf("answer failed: %s", ev.Error)
		case domain.ChatEventComplete:
			if !printed {
				cmd.Print(ev.Response)
			}
			cmd.Println()
			printCitations(cmd, ev)
			return nil
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	return errors.New("answer stream ended unexpectedly")
}

func collectAnswer(cmd *cobra.Command, events <-chan domain.ChatEvent) error {
	for ev := range events {
		switch ev.Type {
		case domain.ChatEventError:
			return fmt.Errorf("answer failed: %s", ev.Error)
		case domain.ChatEventComplete:
			return printJSON(cmd, ev)
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	return errors.New("answer stream ended unexpectedly")
}

func printCitations(cmd *cobra.Command, ev domain.ChatEvent) {
	if len(ev.Citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for _, c := range ev.Citations {
		cmd.Printf("  - %s (%s)\n", c.Title, c.DocumentID)
	}
	if ev.Cached {
		cmd.Println("(cached answer)")
	}
}

func loadHistory(path string) ([]domain.ChatTurn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var turns []domain.ChatTurn
	if err := yaml.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return turns, nil
}
