package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/extractors/command"
	"github.com/custodia-labs/propdocs/internal/extractors/docx"
	"github.com/custodia-labs/propdocs/internal/extractors/html"
	"github.com/custodia-labs/propdocs/internal/extractors/markdown"
	"github.com/custodia-labs/propdocs/internal/extractors/pdf"
	"github.com/custodia-labs/propdocs/internal/extractors/plaintext"
)

// Verify interface compliance.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches blobs to the highest-priority extractor for their MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string][]driven.StructuredExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string][]driven.StructuredExtractor)}
}

// RegisterDefaults registers all built-in extractors. The PDF extractor
// shells out through runner, so tests can pass a fake.
func RegisterDefaults(r *Registry, runner command.Runner) {
	r.Register(pdf.NewWithRunner(runner))
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
}

// Register adds an extractor for each of its MIME types.
func (r *Registry) Register(extractor driven.StructuredExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range extractor.SupportedMIMETypes() {
		key := NormalizeMIMEType(mimeType)
		list := append(r.extractors[key], extractor)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.extractors[key] = list
	}
}

// Extract runs the preferred extractor for the blob's MIME type. When the
// blob carries no MIME type it is inferred from the filename extension.
func (r *Registry) Extract(ctx context.Context, blob *domain.Blob) (*driven.StructuredText, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := NormalizeMIMEType(blob.MIMEType)
	if mimeType == "" {
		mimeType = DetectMIMEType(blob.Filename)
	}

	r.mu.RLock()
	list := r.extractors[mimeType]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, mimeType)
	}

	result, err := list[0].Extract(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("%s extractor: %w", list[0].Name(), err)
	}
	return result, nil
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for mimeType := range r.extractors {
		types = append(types, mimeType)
	}
	sort.Strings(types)
	return types
}

// NormalizeMIMEType lowercases a MIME type and drops its parameters.
func NormalizeMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".docx":     docx.MIMEType,
	".html":     "text/html",
	".htm":      "text/html",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
}

// DetectMIMEType infers a MIME type from a filename, or "" when unknown.
func DetectMIMEType(filename string) string {
	return extensionTypes[strings.ToLower(filepath.Ext(filename))]
}
