package domain

// Blob is raw upload bytes with their declared type.
type Blob struct {
	// Filename is the original filename, used as a MIME hint.
	Filename string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// ExtractionResult is the output of the text extractor.
type ExtractionResult struct {
	// Text is the extracted plain text.
	Text string

	// Method records whether structured parsing or OCR produced Text.
	Method ExtractionMethod

	// PageCount is the number of pages processed.
	PageCount int

	// FailedPages lists pages whose OCR failed and were marked inline.
	FailedPages []int
}

// PageImage is one rendered page ready for OCR.
type PageImage struct {
	// Number is the 1-based page number.
	Number int

	// Path is the image file on disk, inside a scoped temp directory.
	Path string
}

// ProcessedDocument is the processed-document cache entry.
type ProcessedDocument struct {
	PipelineVersion string
	ContentHash     string
	Text            string
	Method          ExtractionMethod
	PageCount       int
	Chunks          []Chunk
}

// IsCurrent reports whether the entry was produced by the current pipeline
// from the given content.
func (p *ProcessedDocument) IsCurrent(contentHash string) bool {
	return p.PipelineVersion == PipelineVersion && p.ContentHash == contentHash
}
