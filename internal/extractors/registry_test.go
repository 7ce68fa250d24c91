package extractors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

type stubExtractor struct {
	name     string
	types    []string
	priority int
	text     string
	err      error
	calls    int
}

func (s *stubExtractor) Name() string                 { return s.name }
func (s *stubExtractor) SupportedMIMETypes() []string { return s.types }
func (s *stubExtractor) Priority() int                { return s.priority }
func (s *stubExtractor) Extract(context.Context, *domain.Blob) (*driven.StructuredText, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &driven.StructuredText{Text: s.text, PageCount: 1}, nil
}

type fakeRunner struct{ output string }

func (f fakeRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return []byte(f.output), nil
}

func TestRegistry_PrefersHigherPriority(t *testing.T) {
	r := NewRegistry()
	low := &stubExtractor{name: "low", types: []string{"text/plain"}, priority: 5, text: "low"}
	high := &stubExtractor{name: "high", types: []string{"text/plain"}, priority: 50, text: "high"}
	r.Register(low)
	r.Register(high)

	result, err := r.Extract(context.Background(), &domain.Blob{MIMEType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "high", result.Text)
	assert.Equal(t, 0, low.calls)
	assert.Equal(t, 1, high.calls)
}

func TestRegistry_NormalizesMIMEType(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "html", types: []string{"text/html"}, priority: 50, text: "ok"})

	result, err := r.Extract(context.Background(), &domain.Blob{MIMEType: "Text/HTML; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
}

func TestRegistry_InfersFromFilename(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{name: "md", types: []string{"text/markdown"}, priority: 50, text: "md"})

	result, err := r.Extract(context.Background(), &domain.Blob{Filename: "notes.MD"})
	require.NoError(t, err)
	assert.Equal(t, "md", result.Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), &domain.Blob{MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_WrapsExtractorError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register(&stubExtractor{name: "pdf", types: []string{"application/pdf"}, priority: 50, err: boom})

	_, err := r.Extract(context.Background(), &domain.Blob{MIMEType: "application/pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "pdf extractor")
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, fakeRunner{output: "Page one text\fPage two text\f"})

	types := r.SupportedMIMETypes()
	for _, want := range []string{"application/pdf", "text/html", "text/markdown", "text/plain", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"} {
		assert.Contains(t, types, want)
	}

	result, err := r.Extract(context.Background(), &domain.Blob{MIMEType: "application/pdf", Content: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageCount)
	assert.Contains(t, result.Text, "Page two text")
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMIMEType("report.PDF"))
	assert.Equal(t, "image/jpeg", DetectMIMEType("scan.jpeg"))
	assert.Equal(t, "", DetectMIMEType("archive.zip"))
	assert.Equal(t, "", DetectMIMEType("noext"))
}
