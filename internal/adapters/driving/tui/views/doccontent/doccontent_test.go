package doccontent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

type mockDocumentService struct {
	doc *domain.Document
	err error
}

func (m *mockDocumentService) Upload(context.Context, driving.UploadRequest) (*domain.Document, error) {
	return nil, nil
}

func (m *mockDocumentService) Process(context.Context, string) (*driving.ProcessResult, error) {
	return nil, nil
}

func (m *mockDocumentService) ProcessOwner(context.Context, string) ([]driving.ProcessResult, error) {
	return nil, nil
}

func (m *mockDocumentService) ReprocessStale(context.Context) (int, error) { return 0, nil }

func (m *mockDocumentService) Delete(context.Context, string) error { return nil }

func (m *mockDocumentService) PurgeOwner(context.Context, string) (int, error) { return 0, nil }

func (m *mockDocumentService) List(context.Context, string) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.err
}

func (m *mockDocumentService) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

type mockAnalysisService struct {
	snapshot  domain.AnalysisSnapshot
	err       error
	started   bool
	lastForce bool
}

func (m *mockAnalysisService) StartOrRefresh(_ context.Context, _ string, force bool) (domain.AnalysisSnapshot, error) {
	m.started = true
	m.lastForce = force
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Enqueue(context.Context, string, bool) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Status(context.Context, string) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

func testDocument() *domain.Document {
	return &domain.Document{ID: "doc-1", Title: "Home Inspection", Type: domain.DocumentTypeHomeInspection}
}

func manyLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line"
	}
	return strings.Join(lines, "\n")
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), &mockDocumentService{}, &mockAnalysisService{})

	require.NotNil(t, view)
	assert.Nil(t, view.Document())
	assert.Empty(t, view.Content())
	assert.Nil(t, view.Init())
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, nil, nil)

	assert.NotNil(t, view.styles)
}

func TestView_SetDocument_Text(t *testing.T) {
	docs := &mockDocumentService{doc: &domain.Document{ID: "doc-1", Text: "ROOF\nShingles worn."}}
	view := NewView(nil, docs, nil)

	cmd := view.SetDocument(testDocument(), messages.ContentText)

	require.NotNil(t, cmd)
	assert.True(t, view.Loading())
	view.Update(cmd())

	assert.False(t, view.Loading())
	assert.NoError(t, view.Err())
	assert.Equal(t, "ROOF\nShingles worn.", view.Content())
	assert.Equal(t, messages.ContentText, view.Mode())
}

func TestView_SetDocument_TextError(t *testing.T) {
	view := NewView(nil, &mockDocumentService{err: domain.ErrNotFound}, nil)

	cmd := view.SetDocument(testDocument(), messages.ContentText)
	view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
}

func TestView_SetDocument_NoService(t *testing.T) {
	view := NewView(nil, nil, nil)

	cmd := view.SetDocument(testDocument(), messages.ContentText)
	view.Update(cmd())
	assert.ErrorIs(t, view.Err(), ErrServiceUnavailable)

	cmd = view.SetDocument(testDocument(), messages.ContentAnalysis)
	view.Update(cmd())
	assert.ErrorIs(t, view.Err(), ErrServiceUnavailable)
}

func TestView_SetDocument_Analysis(t *testing.T) {
	analysis := &mockAnalysisService{snapshot: domain.AnalysisSnapshot{
		DocumentID: "doc-1",
		Status:     domain.StatusCompleted,
		Result:     "## Summary\nRoof at end of life.",
	}}
	view := NewView(nil, nil, analysis)
	view.SetDimensions(80, 24)

	cmd := view.SetDocument(testDocument(), messages.ContentAnalysis)
	view.Update(cmd())

	assert.False(t, analysis.started)
	assert.Contains(t, view.Content(), "Roof at end of life")
	output := view.View()
	assert.Contains(t, output, "Home Inspection · Analysis (completed)")
	assert.Contains(t, output, "## Summary")
	assert.Contains(t, output, "rerun analysis")
}

func TestView_Analysis_FailedSnapshot(t *testing.T) {
	analysis := &mockAnalysisService{snapshot: domain.AnalysisSnapshot{
		DocumentID: "doc-1",
		Status:     domain.StatusFailed,
		Error:      "llm unavailable",
	}}
	view := NewView(nil, nil, analysis)

	cmd := view.SetDocument(testDocument(), messages.ContentAnalysis)
	view.Update(cmd())

	require.Error(t, view.Err())
	assert.Contains(t, view.View(), "llm unavailable")
}

func TestView_Analysis_Rerun(t *testing.T) {
	analysis := &mockAnalysisService{snapshot: domain.AnalysisSnapshot{Status: domain.StatusCompleted, Result: "done"}}
	view := NewView(nil, nil, analysis)
	view.Update(view.SetDocument(testDocument(), messages.ContentAnalysis)())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	require.NotNil(t, cmd)
	assert.True(t, view.Loading())
	assert.Contains(t, view.View(), "Loading analysis")
	view.Update(cmd())
	assert.True(t, analysis.started)
	assert.True(t, analysis.lastForce)
	assert.False(t, view.Loading())
}

func TestView_RerunKey_IgnoredInTextMode(t *testing.T) {
	view := NewView(nil, &mockDocumentService{doc: &domain.Document{Text: "x"}}, &mockAnalysisService{})
	view.Update(view.SetDocument(testDocument(), messages.ContentText)())

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Nil(t, cmd)
}

func TestView_View_EmptyMessages(t *testing.T) {
	view := NewView(nil, &mockDocumentService{doc: &domain.Document{ID: "doc-1"}}, &mockAnalysisService{})

	view.Update(view.SetDocument(testDocument(), messages.ContentText)())
	assert.Contains(t, view.View(), "Process the document first")

	view.Update(view.SetDocument(testDocument(), messages.ContentAnalysis)())
	assert.Contains(t, view.View(), "Press [a] to run one")
}

func TestView_Update_KeyMsg_Back(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewDocuments, changed.View)
}

func TestView_Update_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil, nil)

	view.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, view.Err(), "boom")
}

func TestView_Scrolling(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(80, 16) // 10 visible lines
	view.Update(messages.DocumentContentLoaded{Document: domain.Document{Text: manyLines(30)}})
	require.Equal(t, 20, view.maxScrollOffset())

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 10, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	view.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, 20, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 10, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 20, view.scrollOffset)
	assert.Contains(t, view.View(), "[100%] Line 21-30 of 30")
}

func TestView_WrapContent(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(24, 24) // content width clamps to 20
	view.content = strings.Repeat("é", 45) + "\n\nshort"

	view.wrapContent()

	require.Len(t, view.lines, 5)
	assert.Equal(t, strings.Repeat("é", 20), view.lines[0])
	assert.Equal(t, strings.Repeat("é", 5), view.lines[2])
	assert.Equal(t, "", view.lines[3])
	assert.Equal(t, "short", view.lines[4])
}

func TestView_VisibleLines_Minimum(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(80, 3)

	assert.Equal(t, 1, view.visibleLines())
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 1, minInt(1, 2))
	assert.Equal(t, 1, minInt(2, 1))
	assert.Equal(t, -3, minInt(-3, 0))
}
