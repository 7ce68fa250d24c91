package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// StructuredExtractor pulls text out of a document format directly.
// Each extractor handles specific MIME types (e.g., PDF, DOCX).
type StructuredExtractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the document text.
	Extract(ctx context.Context, blob *domain.Blob) (*StructuredText, error)
}

// StructuredText is the output of a structured extractor.
type StructuredText struct {
	Text      string
	PageCount int
}

// ExtractorRegistry selects the appropriate structured extractor for a blob.
type ExtractorRegistry interface {
	// Extract dispatches to the highest-priority extractor for the MIME type.
	// Returns domain.ErrUnsupportedType when none matches.
	Extract(ctx context.Context, blob *domain.Blob) (*StructuredText, error)

	// Register adds an extractor to the registry.
	Register(extractor StructuredExtractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}

// PageRenderer renders a document's pages to images for OCR.
type PageRenderer interface {
	// Supports reports whether the MIME type can be rendered.
	Supports(mimeType string) bool

	// Render writes one image per page into dir, which the caller owns and removes.
	Render(ctx context.Context, blob *domain.Blob, dir string) ([]domain.PageImage, error)
}

// ImageEnhancer improves a page image for OCR accuracy.
type ImageEnhancer interface {
	// Enhance writes an enhanced copy next to path and returns its path.
	Enhance(ctx context.Context, path string) (string, error)
}

// OCREngine recognises text in a page image.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// SectionClassifier labels a chunk of text given its document type.
type SectionClassifier interface {
	Classify(text string, docType domain.DocumentType) string
}
