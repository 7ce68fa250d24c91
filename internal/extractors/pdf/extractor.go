// Package pdf extracts the text layer of PDF documents with poppler's pdftotext.
package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/extractors/command"
)

// Tool is the poppler binary used for text extraction.
const Tool = "pdftotext"

// Ensure Extractor implements the interface.
var _ driven.StructuredExtractor = (*Extractor)(nil)

// Extractor handles PDF documents with a text layer. Scanned PDFs yield
// little or no text and are left to the OCR fallback.
type Extractor struct {
	runner command.Runner
}

// New creates a PDF extractor that shells out to pdftotext.
func New() *Extractor {
	return NewWithRunner(command.ExecRunner{})
}

// NewWithRunner creates a PDF extractor with a custom command runner.
func NewWithRunner(runner command.Runner) *Extractor {
	return &Extractor{runner: runner}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "pdf"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract writes the blob to a temp file and runs pdftotext over it.
func (e *Extractor) Extract(ctx context.Context, blob *domain.Blob) (*driven.StructuredText, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	tmp, err := os.CreateTemp("", "propdocs-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, Tool, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	text, pages := splitPages(string(out))
	return &driven.StructuredText{Text: text, PageCount: pages}, nil
}

// splitPages counts the form feeds pdftotext emits after each page and
// replaces them with blank lines.
func splitPages(out string) (string, int) {
	pages := strings.Count(out, "\f")
	if pages == 0 && strings.TrimSpace(out) != "" {
		pages = 1
	}
	text := strings.ReplaceAll(out, "\f", "\n\n")
	return strings.TrimSpace(text), pages
}
