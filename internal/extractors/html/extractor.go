package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.StructuredExtractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "html"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Generic MIME extractor, higher than plaintext
}

// Extract returns the visible text of an HTML document as a single page.
func (e *Extractor) Extract(_ context.Context, blob *domain.Blob) (*driven.StructuredText, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	text := StripHTML(string(blob.Content))
	pages := 0
	if text != "" {
		pages = 1
	}
	return &driven.StructuredText{Text: text, PageCount: pages}, nil
}

// Title returns the contents of the <title> tag, or "" when absent.
func Title(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(strings.TrimSpace(matches[1])))
	}
	return ""
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	closeBlockTags    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	cellTags          = regexp.MustCompile(`(?i)</t[dh]>`)
	lineBreakTags     = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes markup and returns readable text with one line per block.
// Paragraph breaks become blank lines so the chunker can snap to them.
func StripHTML(content string) string {
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, htmlComments} {
		content = re.ReplaceAllString(content, "")
	}

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = closeBlockTags.ReplaceAllString(content, "\n\n")
	content = cellTags.ReplaceAllString(content, " ")
	content = lineBreakTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	// Keep at most one blank line between blocks.
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(result) > 0
			continue
		}
		if blank {
			result = append(result, "")
			blank = false
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}
