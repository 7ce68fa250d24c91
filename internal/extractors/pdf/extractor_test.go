package pdf

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// mockRunner is a test double for command.Runner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
	sawPDF bool
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	if len(args) >= 2 {
		data, err := os.ReadFile(args[len(args)-2])
		m.sawPDF = err == nil && string(data) == "%PDF-1.4 fake"
	}
	return m.output, m.err
}

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.Equal(t, "pdf", extractor.Name())
	assert.Equal(t, []string{"application/pdf"}, extractor.SupportedMIMETypes())
	assert.Equal(t, 50, extractor.Priority())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.StructuredExtractor = (*Extractor)(nil)
}

func TestExtract_NilBlob(t *testing.T) {
	result, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtract_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Wood Destroying Pests Report\n\fSection 1 findings\n\f")}
	extractor := NewWithRunner(runner)

	result, err := extractor.Extract(context.Background(), &domain.Blob{
		Filename: "Pest_Report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)

	assert.Equal(t, Tool, runner.name)
	assert.Contains(t, runner.args, "-layout")
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
	assert.True(t, runner.sawPDF, "runner should receive a temp file holding the blob")
	assert.Equal(t, 2, result.PageCount)
	assert.Contains(t, result.Text, "Section 1 findings")
	assert.NotContains(t, result.Text, "\f")
}

func TestExtract_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	result, err := NewWithRunner(runner).Extract(context.Background(), &domain.Blob{Content: []byte("x")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, result)
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		text  string
		pages int
	}{
		{"empty", "", "", 0},
		{"scanned pages only", "\f\f\f", "", 3},
		{"no form feed", "one page", "one page", 1},
		{"two pages", "a\fb\f", "a\n\nb", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, pages := splitPages(tt.in)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.pages, pages)
		})
	}
}
