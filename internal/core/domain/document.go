package domain

import (
	"fmt"
	"strings"
	"time"
)

// MinExtractedTextLength is the shortest extracted text accepted as final.
// Anything shorter is treated as a failed structured parse and triggers OCR.
const MinExtractedTextLength = 100

// PipelineVersion stamps documents processed by the current extraction and
// chunking pipeline. Bump it when either changes so stale documents are reprocessed.
const PipelineVersion = "2"

// DocumentType is the closed set of property document categories.
type DocumentType string

// Known document types.
const (
	DocumentTypeHomeInspection    DocumentType = "Home Inspection Report"
	DocumentTypePestInspection    DocumentType = "Pest Inspection Report"
	DocumentTypeSellerDisclosure  DocumentType = "Seller Disclosure"
	DocumentTypeHOA               DocumentType = "HOA Documents"
	DocumentTypeTitleReport       DocumentType = "Title Report"
	DocumentTypeAppraisal         DocumentType = "Appraisal Report"
	DocumentTypeNaturalHazard     DocumentType = "Natural Hazard Disclosure"
	DocumentTypePurchaseAgreement DocumentType = "Purchase Agreement"
	DocumentTypeOther             DocumentType = "Other"
)

// DocumentTypes returns every known document type in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeHomeInspection,
		DocumentTypePestInspection,
		DocumentTypeSellerDisclosure,
		DocumentTypeHOA,
		DocumentTypeTitleReport,
		DocumentTypeAppraisal,
		DocumentTypeNaturalHazard,
		DocumentTypePurchaseAgreement,
		DocumentTypeOther,
	}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	for _, known := range DocumentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Slug returns a lowercase, underscore separated identifier for the type.
// Used for prompt names and CLI flags.
func (t DocumentType) Slug() string {
	s := strings.ToLower(string(t))
	return strings.ReplaceAll(s, " ", "_")
}

// String returns the display label.
func (t DocumentType) String() string {
	return string(t)
}

// ParseDocumentType accepts either the display label or its slug.
// An empty string maps to DocumentTypeOther.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DocumentTypeOther, nil
	}
	for _, known := range DocumentTypes() {
		if strings.EqualFold(s, string(known)) || strings.EqualFold(s, known.Slug()) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: document type %q", ErrUnsupportedType, s)
}

// ExtractionMethod records how a document's text was obtained.
type ExtractionMethod string

// Extraction methods.
const (
	ExtractionMethodNone       ExtractionMethod = ""
	ExtractionMethodStructured ExtractionMethod = "structured"
	ExtractionMethodOCR        ExtractionMethod = "ocr"
)

// Document is one uploaded file scoped to an owning entity.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the owning entity (e.g. a property). All retrieval is scoped by it.
	OwnerID string

	// Title is the human-readable title used in prompts and citations.
	Title string

	// Filename is the original upload filename.
	Filename string

	// MIMEType is the upload content type.
	MIMEType string

	// Type is the document category.
	Type DocumentType

	// BlobKey locates the raw bytes in blob storage.
	BlobKey string

	// Text is the extracted plain text. Empty until processed.
	Text string

	// TextMethod is how Text was extracted.
	TextMethod ExtractionMethod

	// PageCount is the number of pages seen during extraction.
	PageCount int

	// ContentHash is the SHA-256 of the raw upload.
	ContentHash string

	// PipelineVersion is the pipeline version that produced Text and chunks.
	PipelineVersion string

	// AnalysisID references the analysis record. Empty until analysis is first requested.
	AnalysisID string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// TextUpdate is a partial write of a document's extraction columns. Other
// columns, such as AnalysisID, are left as stored. An empty ContentHash or
// PipelineVersion keeps the stored value.
type TextUpdate struct {
	Text            string
	Method          ExtractionMethod
	PageCount       int
	ContentHash     string
	PipelineVersion string
	UpdatedAt       time.Time
}

// Apply copies the update onto d.
func (u TextUpdate) Apply(d *Document) {
	d.Text, d.TextMethod, d.PageCount = u.Text, u.Method, u.PageCount
	if u.ContentHash != "" {
		d.ContentHash = u.ContentHash
	}
	if u.PipelineVersion != "" {
		d.PipelineVersion = u.PipelineVersion
	}
	if !u.UpdatedAt.IsZero() {
		d.UpdatedAt = u.UpdatedAt
	}
}

// HasText returns true if the document carries usable extracted text.
func (d *Document) HasText() bool {
	return len(strings.TrimSpace(d.Text)) >= MinExtractedTextLength
}

// IsStale returns true if the document was processed by an older pipeline.
func (d *Document) IsStale() bool {
	return d.PipelineVersion != PipelineVersion
}

// DisplayTitle returns the title, falling back to the filename then the ID.
func (d *Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Filename != "" {
		return d.Filename
	}
	return d.ID
}

// Chunk is a contiguous slice of a document's text, the unit of embedding and retrieval.
// Chunks are never mutated after creation; re-chunking replaces the full set.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// OwnerID is copied from the parent document for scoped retrieval.
	OwnerID string

	// Index is the sequence number within the document.
	Index int

	// Start is the byte offset of the first character in the source text.
	Start int

	// End is the byte offset one past the last character in the source text.
	End int

	// Content is the text in [Start, End).
	Content string

	// Section is the heuristic section label.
	Section string

	// Embedding is the vector representation. Nil until computed.
	Embedding []float32
}

// VectorKey returns the vector index key for the chunk.
func (c *Chunk) VectorKey() string {
	return VectorKey(c.DocumentID, c.Index)
}

// VectorKey builds the `{documentId}-{chunkIndex}` index key.
func VectorKey(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}

// Preview returns at most n bytes of the chunk content, cut on a rune boundary.
func (c *Chunk) Preview(n int) string {
	return Truncate(c.Content, n)
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
