package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// TextExtractor turns a document blob into plain text. Structured extraction
// runs first; short, empty or failed results fall back to OCR.
type TextExtractor struct {
	registry  driven.ExtractorRegistry
	renderer  driven.PageRenderer
	enhancer  driven.ImageEnhancer
	ocr       driven.OCREngine
	minLength int
	tempRoot  string
}

// TextExtractorOption configures a TextExtractor.
type TextExtractorOption func(*TextExtractor)

// WithImageEnhancer enables page enhancement before OCR.
func WithImageEnhancer(enhancer driven.ImageEnhancer) TextExtractorOption {
	return func(e *TextExtractor) {
		e.enhancer = enhancer
	}
}

// WithTempRoot sets the parent directory for rendered page images.
func WithTempRoot(dir string) TextExtractorOption {
	return func(e *TextExtractor) {
		e.tempRoot = dir
	}
}

// NewTextExtractor creates a text extractor. renderer and ocr may be nil,
// in which case there is no OCR fallback.
func NewTextExtractor(
	registry driven.ExtractorRegistry,
	renderer driven.PageRenderer,
	ocr driven.OCREngine,
	opts ...TextExtractorOption,
) *TextExtractor {
	e := &TextExtractor{
		registry:  registry,
		renderer:  renderer,
		ocr:       ocr,
		minLength: domain.MinExtractedTextLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the document text and how it was obtained. progress may be nil.
func (e *TextExtractor) Extract(
	ctx context.Context,
	documentID string,
	blob *domain.Blob,
	progress domain.ProgressFunc,
) (*domain.ExtractionResult, error) {
	if blob == nil || len(blob.Content) == 0 {
		return nil, &domain.StageError{DocumentID: documentID, Stage: "extract", Err: domain.NewValidationError("content", "is empty")}
	}
	report := func(pct int, msg string) {
		if progress != nil {
			progress(pct, msg)
		}
	}

	logger.Section("Text Extraction")
	report(domain.ProgressExtracting, "Extracting text")

	structured, structErr := e.registry.Extract(ctx, blob)
	if structErr == nil && len(strings.TrimSpace(structured.Text)) >= e.minLength {
		logger.Debug("Structured extraction for %s: %d chars, %d pages", documentID, len(structured.Text), structured.PageCount)
		return &domain.ExtractionResult{
			Text:      structured.Text,
			Method:    domain.ExtractionMethodStructured,
			PageCount: structured.PageCount,
		}, nil
	}
	if structErr != nil {
		logger.Debug("Structured extraction for %s failed: %v", documentID, structErr)
	} else {
		logger.Debug("Structured extraction for %s too short (%d chars)", documentID, len(strings.TrimSpace(structured.Text)))
	}

	if e.renderer == nil || e.ocr == nil || !e.renderer.Supports(blob.MIMEType) {
		cause := structErr
		if cause == nil {
			cause = fmt.Errorf("extracted text shorter than %d characters", e.minLength)
		}
		return nil, &domain.StageError{
			DocumentID: documentID,
			Stage:      "extract",
			Err:        errors.Join(domain.ErrExtractionFailed, cause),
		}
	}

	report(domain.ProgressOCR, "Running OCR")
	result, recognized, err := e.runOCR(ctx, blob)
	if err != nil {
		return nil, &domain.StageError{DocumentID: documentID, Stage: "ocr", Err: errors.Join(domain.ErrExtractionFailed, err)}
	}
	// Page markers and per-page error notes do not count as text.
	if recognized < e.minLength {
		return nil, &domain.StageError{
			DocumentID: documentID,
			Stage:      "ocr",
			Err: fmt.Errorf("%w: OCR recognised %d characters across %d pages (%d failed)",
				domain.ErrExtractionFailed, recognized, result.PageCount, len(result.FailedPages)),
		}
	}
	return result, nil
}

// runOCR renders every page into a scoped temp directory, recognises each
// page and joins the results with page markers. A failing page is recorded
// inline and the remaining pages still run. recognized counts only the
// characters the OCR engine returned.
func (e *TextExtractor) runOCR(ctx context.Context, blob *domain.Blob) (result *domain.ExtractionResult, recognized int, err error) {
	dir, err := os.MkdirTemp(e.tempRoot, "propdocs-ocr-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pages, err := e.renderer.Render(ctx, blob, dir)
	if err != nil {
		return nil, 0, err
	}
	logger.Debug("Rendered %d pages for OCR", len(pages))

	var (
		b      strings.Builder
		failed []int
	)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		text, err := e.recognizePage(ctx, page)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", page.Number)
		if err != nil {
			logger.Warn("OCR failed on page %d: %v", page.Number, err)
			failed = append(failed, page.Number)
			fmt.Fprintf(&b, "[Error processing page %d: %v]", page.Number, err)
			continue
		}
		b.WriteString(text)
		recognized += len(strings.TrimSpace(text))
	}

	return &domain.ExtractionResult{
		Text:        b.String(),
		Method:      domain.ExtractionMethodOCR,
		PageCount:   len(pages),
		FailedPages: failed,
	}, recognized, nil
}

func (e *TextExtractor) recognizePage(ctx context.Context, page domain.PageImage) (string, error) {
	path := page.Path
	if e.enhancer != nil {
		enhanced, err := e.enhancer.Enhance(ctx, path)
		if err != nil {
			logger.Debug("Enhancement failed on page %d, using original: %v", page.Number, err)
		} else {
			path = enhanced
		}
	}
	return e.ocr.Recognize(ctx, path)
}
