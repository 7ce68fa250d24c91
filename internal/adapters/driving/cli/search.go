package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

const previewLength = 160

var (
	searchLimit     int
	searchJSON      bool
	searchDocuments bool
)

var searchCmd = &cobra.Command{
	Use:   "search [owner-id] [query]",
	Short: "Search a property's documents",
	Long: `Ranks an owner's document chunks against the query.
Scores combine semantic similarity, keyword overlap, document type affinity
and freshness. Use --documents to rank whole documents instead of passages.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchDocuments, "documents", false, "rank documents rather than passages")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	ownerID, query := args[0], args[1]

	if searchDocuments {
		ranked, err := searchService.RankDocuments(cmd.Context(), ownerID, query, searchLimit)
		if err != nil {
			return fmt.Errorf("ranking failed: %w", err)
		}
		if searchJSON {
			return printJSON(cmd, rankedOutput(ranked))
		}
		return outputRankedTable(cmd, ranked)
	}

	results, err := searchService.Search(cmd.Context(), ownerID, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, searchOutput(results))
	}
	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	DocumentID   string  `json:"documentId"`
	Title        string  `json:"title"`
	DocumentType string  `json:"documentType"`
	ChunkIndex   int     `json:"chunkIndex"`
	Section      string  `json:"section,omitempty"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

func searchOutput(results []domain.SearchResult) []searchResultJSON {
	out := make([]searchResultJSON, len(results))
	for i := range results {
		out[i] = searchResultJSON{
			DocumentID:   results[i].Document.ID,
			Title:        results[i].Document.DisplayTitle(),
			DocumentType: results[i].Document.Type.String(),
			ChunkIndex:   results[i].Chunk.Index,
			Section:      results[i].Chunk.Section,
			Score:        results[i].Score,
			Content:      results[i].Chunk.Content,
		}
	}
	return out
}

type rankedDocumentJSON struct {
	DocumentID   string  `json:"documentId"`
	Title        string  `json:"title"`
	DocumentType string  `json:"documentType"`
	Score        float64 `json:"score"`
}

func rankedOutput(ranked []domain.RankedCandidate) []rankedDocumentJSON {
	out := make([]rankedDocumentJSON, 0, len(ranked))
	for i := range ranked {
		doc := ranked[i].Document
		if doc == nil {
			continue
		}
		out = append(out, rankedDocumentJSON{
			DocumentID:   doc.ID,
			Title:        doc.DisplayTitle(),
			DocumentType: doc.Type.String(),
			Score:        ranked[i].Score,
		})
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		doc := &results[i].Document
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, doc.DisplayTitle(), results[i].Score)
		cmd.Printf("      %s, chunk %d", doc.Type, results[i].Chunk.Index)
		if results[i].Chunk.Section != "" {
			cmd.Printf(", %s", results[i].Chunk.Section)
		}
		cmd.Println()
		if preview := previewText(results[i].Chunk.Content, previewLength); preview != "" {
			cmd.Printf("      %s\n", preview)
		}
		cmd.Println()
	}

	return nil
}

func outputRankedTable(cmd *cobra.Command, ranked []domain.RankedCandidate) error {
	if len(ranked) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range ranked {
		if ranked[i].Document == nil {
			continue
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, ranked[i].Document.DisplayTitle(), ranked[i].Score)
		cmd.Printf("      %s, %s\n", ranked[i].Document.Type, ranked[i].Document.ID)
	}

	return nil
}

// previewText collapses whitespace and truncates to limit runes.
func previewText(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
