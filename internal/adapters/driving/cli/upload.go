package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

var (
	uploadType    string
	uploadTitle   string
	uploadProcess bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [owner-id] [file]",
	Short: "Upload a document for an owner",
	Long: `Stores a PDF or image for an owner and records it as a document.

The document type drives analysis prompts and search affinity. It accepts a
label ("Home Inspection Report") or a slug ("home_inspection_report").
Use --process to extract, chunk and index it straight away.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadType, "type", "t", "", "document type (default Other)")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "display title (default file name)")
	uploadCmd.Flags().BoolVarP(&uploadProcess, "process", "p", false, "process the document after upload")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ownerID, path := args[0], args[1]

	docType, err := domain.ParseDocumentType(uploadType)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := documentService.Upload(cmd.Context(), driving.UploadRequest{
		OwnerID:  ownerID,
		Title:    uploadTitle,
		Filename: filepath.Base(path),
		Type:     docType,
		Content:  content,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %s as %s (%s)\n", doc.DisplayTitle(), doc.ID, doc.Type)

	if !uploadProcess {
		return nil
	}

	cmd.Printf("Processing %s...\n", doc.ID)
	result, err := documentService.Process(cmd.Context(), doc.ID)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	printProcessResult(cmd, result)
	return nil
}
