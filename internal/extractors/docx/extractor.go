// Package docx extracts paragraph text from Word (.docx) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// MIMEType is the OOXML word processing content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Extractor implements the interface.
var _ driven.StructuredExtractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor.
func (e *Extractor) Name() string {
	return "docx"
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract reads word/document.xml out of the zip container.
func (e *Extractor) Extract(_ context.Context, blob *domain.Blob) (*driven.StructuredText, error) {
	if blob == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(blob.Content), int64(len(blob.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive", domain.ErrInvalidInput)
	}

	text, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}

	// Word has no fixed pagination; explicit page breaks are the best signal.
	return &driven.StructuredText{Text: text.body, PageCount: text.pageBreaks + 1}, nil
}

type documentText struct {
	body       string
	pageBreaks int
}

// extractDocumentText extracts text from word/document.xml.
func extractDocumentText(reader *zip.Reader) (documentText, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return documentText{}, domain.ErrInvalidInput
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return documentText{}, domain.ErrInvalidInput
		}

		return parseDocumentXML(content), nil
	}
	return documentText{}, fmt.Errorf("%w: missing word/document.xml", domain.ErrInvalidInput)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text   []textElement `xml:"t"`
	Breaks []breakElement `xml:"br"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type breakElement struct {
	Type string `xml:"type,attr"`
}

// parseDocumentXML extracts paragraph text and counts page breaks.
func parseDocumentXML(content []byte) documentText {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return documentText{}
	}

	var result strings.Builder
	breaks := 0
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				result.WriteString(text.Content)
			}
			for _, br := range r.Breaks {
				if br.Type == "page" {
					breaks++
				}
			}
		}
	}

	return documentText{body: strings.TrimSpace(result.String()), pageBreaks: breaks}
}
