package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage uploaded documents",
	Long:    `List, inspect, print, link or delete a property's documents, or purge an owner.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list [owner-id]",
	Short: "List documents for an owner",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsTextCmd = &cobra.Command{
	Use:   "text [doc-id]",
	Short: "Print extracted text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsText,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes a document together with its chunks, vectors, analysis and stored file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every document of an owner",
	Long: `Removes all of an owner's documents with their chunks, analyses and stored
files, then clears any vectors still indexed under the owner.`,
	Args: cobra.NoArgs,
	RunE: runDocumentsPurge,
}

var documentsURLCmd = &cobra.Command{
	Use:   "url [doc-id]",
	Short: "Print a time-limited download link",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsURL,
}

var (
	documentURLTTL time.Duration
	purgeOwnerID   string
)

func init() {
	documentsURLCmd.Flags().DurationVar(&documentURLTTL, "ttl", 15*time.Minute, "link lifetime")

	documentsPurgeCmd.Flags().StringVar(&purgeOwnerID, "owner", "", "owner whose documents are removed")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsTextCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsPurgeCmd)
	documentsCmd.AddCommand(documentsURLCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ownerID := args[0]
	docs, err := documentService.List(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for owner: %s\n", ownerID)
		return nil
	}

	cmd.Printf("Documents for owner %s:\n\n", ownerID)
	for i := range docs {
		doc := &docs[i]
		cmd.Printf("  %s\n", doc.ID)
		cmd.Printf("    Title: %s\n", doc.DisplayTitle())
		cmd.Printf("    Type:  %s\n", doc.Type)
		switch {
		case !doc.HasText():
			cmd.Println("    State: unprocessed")
		case doc.IsStale():
			cmd.Println("    State: stale")
		default:
			cmd.Printf("    Pages: %d\n", doc.PageCount)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.DisplayTitle())
	cmd.Printf("  Owner:    %s\n", doc.OwnerID)
	cmd.Printf("  Type:     %s\n", doc.Type)
	cmd.Printf("  File:     %s (%s)\n", doc.Filename, doc.MIMEType)
	if doc.HasText() {
		cmd.Printf("  Pages:    %d\n", doc.PageCount)
		cmd.Printf("  Method:   %s\n", doc.TextMethod)
		cmd.Printf("  Pipeline: %s\n", doc.PipelineVersion)
	} else {
		cmd.Println("  Text:     not extracted")
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(doc.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for k, v := range doc.Metadata {
			cmd.Printf("    %s: %v\n", k, v)
		}
	}

	return nil
}

func runDocumentsText(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if !doc.HasText() {
		return fmt.Errorf("document %s has no extracted text; run 'propdocs process --doc %s'", doc.ID, doc.ID)
	}

	cmd.Println(doc.Text)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentsPurge(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if purgeOwnerID == "" {
		return errors.New("--owner is required")
	}

	n, err := documentService.PurgeOwner(cmd.Context(), purgeOwnerID)
	if err != nil {
		return fmt.Errorf("failed to purge owner: %w", err)
	}

	cmd.Printf("Purged %d documents for owner %s.\n", n, purgeOwnerID)
	return nil
}

func runDocumentsURL(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	url, err := documentService.SignedURL(cmd.Context(), args[0], documentURLTTL)
	if err != nil {
		return fmt.Errorf("failed to sign URL: %w", err)
	}

	cmd.Println(url)
	return nil
}
