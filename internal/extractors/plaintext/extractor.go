// Package plaintext provides the fallback StructuredExtractor for text formats.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.StructuredExtractor = (*Extractor)(nil)

// Extractor handles plain text and text-like formats.
type Extractor struct{}

// New creates a new plaintext extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "plaintext"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/rtf",
		"application/json",
		"application/xml",
		"text/xml",
		"application/x-yaml",
		"text/yaml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract returns the content as text. Invalid UTF-8 is rejected so binary
// uploads labelled as text fail loudly instead of producing garbage chunks.
func (e *Extractor) Extract(_ context.Context, blob *domain.Blob) (*driven.StructuredText, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(blob.Content) {
		return nil, domain.NewValidationError("content", "is not valid UTF-8 text")
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(blob.Content), "\r\n", "\n"))
	pages := 0
	if text != "" {
		pages = 1
	}
	return &driven.StructuredText{Text: text, PageCount: pages}, nil
}
