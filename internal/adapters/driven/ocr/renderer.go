package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/extractors/command"
)

// RendererTool is the poppler binary used to rasterise PDF pages.
const RendererTool = "pdftoppm"

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 300

// Verify interface compliance.
var _ driven.PageRenderer = (*Renderer)(nil)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/tiff": ".tif",
}

// Renderer turns PDFs into one PNG per page. Image uploads are already a
// single page and are copied into the work directory as-is.
type Renderer struct {
	runner command.Runner
	dpi    int
}

// NewRenderer creates a renderer. A non-positive dpi uses DefaultDPI.
func NewRenderer(runner command.Runner, dpi int) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{runner: runner, dpi: dpi}
}

// Supports reports whether the MIME type can be rendered.
func (r *Renderer) Supports(mimeType string) bool {
	if mimeType == "application/pdf" {
		return true
	}
	_, ok := imageExtensions[mimeType]
	return ok
}

// Render writes page images into dir.
func (r *Renderer) Render(ctx context.Context, blob *domain.Blob, dir string) ([]domain.PageImage, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	if ext, ok := imageExtensions[blob.MIMEType]; ok {
		path := filepath.Join(dir, "page-1"+ext)
		if err := os.WriteFile(path, blob.Content, 0o600); err != nil {
			return nil, fmt.Errorf("write page image: %w", err)
		}
		return []domain.PageImage{{Number: 1, Path: path}}, nil
	}

	if blob.MIMEType != "application/pdf" {
		return nil, fmt.Errorf("%w: cannot render %q", domain.ErrUnsupportedType, blob.MIMEType)
	}

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, blob.Content, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	if _, err := r.runner.Run(ctx, RendererTool, "-r", strconv.Itoa(r.dpi), "-png", input, prefix); err != nil {
		return nil, fmt.Errorf("render pages: %w", err)
	}

	return collectPages(dir)
}

// collectPages finds pdftoppm output. Page numbers are zero-padded to the
// width of the page count, so they are parsed rather than sorted as strings.
func collectPages(dir string) ([]domain.PageImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}

	pages := make([]domain.PageImage, 0, len(matches))
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), ".png")
		n, err := strconv.Atoi(strings.TrimPrefix(base, "page-"))
		if err != nil {
			continue
		}
		pages = append(pages, domain.PageImage{Number: n, Path: path})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: renderer produced no pages", domain.ErrExtractionFailed)
	}
	return pages, nil
}
