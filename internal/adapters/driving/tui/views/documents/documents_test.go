package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

type mockDocumentService struct {
	docs          []domain.Document
	listErr       error
	processResult *driving.ProcessResult
	processErr    error
	deleteErr     error
	listOwner     string
	processed     string
	deleted       string
}

func (m *mockDocumentService) Upload(context.Context, driving.UploadRequest) (*domain.Document, error) {
	return nil, nil
}

func (m *mockDocumentService) Process(_ context.Context, id string) (*driving.ProcessResult, error) {
	m.processed = id
	return m.processResult, m.processErr
}

func (m *mockDocumentService) ProcessOwner(context.Context, string) ([]driving.ProcessResult, error) {
	return nil, nil
}

func (m *mockDocumentService) ReprocessStale(context.Context) (int, error) { return 0, nil }

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.deleteErr
}

func (m *mockDocumentService) PurgeOwner(context.Context, string) (int, error) { return 0, nil }

func (m *mockDocumentService) List(_ context.Context, owner string) ([]domain.Document, error) {
	m.listOwner = owner
	return m.docs, m.listErr
}

func (m *mockDocumentService) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

type mockAnalysisService struct {
	snapshot domain.AnalysisSnapshot
	err      error
	enqueued string
}

func (m *mockAnalysisService) StartOrRefresh(context.Context, string, bool) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Enqueue(_ context.Context, id string, _ bool) (domain.AnalysisSnapshot, error) {
	m.enqueued = id
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Status(context.Context, string) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{
			ID:              "doc-1",
			Title:           "Home Inspection",
			Type:            domain.DocumentTypeHomeInspection,
			PageCount:       42,
			PipelineVersion: domain.PipelineVersion,
		},
		{ID: "doc-2", Filename: "hoa.pdf", Type: domain.DocumentTypeHOA},
		{ID: "doc-3", Title: "Old Appraisal", Type: domain.DocumentTypeAppraisal, PipelineVersion: "v0"},
	}
}

// loaded returns a view populated with test documents.
func loaded(t *testing.T, docs *mockDocumentService, analysis *mockAnalysisService) *View {
	t.Helper()
	if docs.docs == nil {
		docs.docs = testDocuments()
	}
	view := NewView(nil, docs, analysis, "p-1")
	view.SetDimensions(100, 30)
	view.Update(view.Load()())
	require.Len(t, view.Documents(), len(docs.docs))
	return view
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil, "p-1")

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, "p-1", view.OwnerID())
	assert.Empty(t, view.Documents())
	assert.Nil(t, view.Init())
	assert.Nil(t, view.SelectedDocument())
}

func TestView_Load(t *testing.T) {
	docs := &mockDocumentService{}
	view := loaded(t, docs, nil)

	assert.Equal(t, "p-1", docs.listOwner)
	assert.NoError(t, view.Err())
	assert.Equal(t, "doc-1", view.SelectedDocument().ID)
}

func TestView_Load_Error(t *testing.T) {
	view := NewView(nil, &mockDocumentService{listErr: errors.New("db down")}, nil, "p-1")

	cmd := view.Load()
	assert.Contains(t, view.View(), "Loading documents")
	view.Update(cmd())

	require.Error(t, view.Err())
	assert.Contains(t, view.View(), "db down")
}

func TestView_Load_NoService(t *testing.T) {
	view := NewView(nil, nil, nil, "p-1")

	view.Update(view.Load()())

	assert.ErrorIs(t, view.Err(), ErrServiceUnavailable)
}

func TestView_View_Rows(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)

	output := view.View()

	assert.Contains(t, output, "Documents - p-1 (3)")
	assert.Contains(t, output, "Home Inspection")
	assert.Contains(t, output, "42 pages")
	assert.Contains(t, output, "hoa.pdf")
	assert.Contains(t, output, "unprocessed")
	assert.Contains(t, output, "stale")
}

func TestView_View_Empty(t *testing.T) {
	view := loaded(t, &mockDocumentService{docs: []domain.Document{}}, nil)

	assert.Contains(t, view.View(), "No documents uploaded")
}

func TestView_Navigation(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(key('j'))
	view.Update(key('j'))
	assert.Equal(t, 2, view.SelectedIndex())

	view.Update(key('k'))
	assert.Equal(t, 1, view.SelectedIndex())
}

func TestView_Esc_BackToMenu(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	changed, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewMenu, changed.View)
}

func TestView_ProcessShortcut(t *testing.T) {
	docs := &mockDocumentService{processResult: &driving.ProcessResult{
		DocumentID: "doc-2", PageCount: 3, Chunks: 12, Indexed: 11, SkippedChunks: 1,
	}}
	view := loaded(t, docs, nil)
	view.Update(key('j'))

	_, cmd := view.Update(key('p'))
	require.NotNil(t, cmd)
	assert.Contains(t, view.View(), "Processing hoa.pdf")

	_, reload := view.Update(cmd())

	assert.Equal(t, "doc-2", docs.processed)
	assert.Equal(t, "Processed 3 pages into 12 chunks (11 indexed), 1 skipped", view.Notice())
	require.NotNil(t, reload)
	_, ok := reload().(messages.DocumentsLoaded)
	assert.True(t, ok)
}

func TestView_ProcessError(t *testing.T) {
	view := loaded(t, &mockDocumentService{processErr: domain.ErrExtractionFailed}, nil)

	_, cmd := view.Update(key('p'))
	_, reload := view.Update(cmd())

	assert.Nil(t, reload)
	assert.ErrorIs(t, view.Err(), domain.ErrExtractionFailed)
}

func TestView_AnalyzeShortcut(t *testing.T) {
	analysis := &mockAnalysisService{snapshot: domain.AnalysisSnapshot{DocumentID: "doc-1", Status: domain.StatusQueued}}
	view := loaded(t, &mockDocumentService{}, analysis)

	_, cmd := view.Update(key('a'))
	require.NotNil(t, cmd)
	view.Update(cmd())

	assert.Equal(t, "doc-1", analysis.enqueued)
	assert.Equal(t, "Analysis queued for Home Inspection", view.Notice())
}

func TestView_Analyze_NoService(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)

	_, cmd := view.Update(key('a'))
	view.Update(cmd())

	assert.ErrorIs(t, view.Err(), ErrServiceUnavailable)
}

func TestView_ActionMenu(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, view.IsShowingMenu())
	output := view.View()
	assert.Contains(t, output, "Actions for: Home Inspection")
	assert.Contains(t, output, "Show Extracted Text")
	assert.Contains(t, output, "Run Analysis")

	view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, view.IsShowingMenu())
}

func TestView_ActionMenu_ShowText(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-1", selected.Document.ID)
	assert.False(t, view.IsShowingMenu())
}

func TestView_ActionMenu_ShowAnalysis(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.Update(key('j'))

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	requested, ok := cmd().(messages.AnalysisRequested)
	require.True(t, ok)
	assert.Equal(t, "doc-1", requested.Document.ID)
}

func TestView_ActionMenu_Delete(t *testing.T) {
	docs := &mockDocumentService{}
	view := loaded(t, docs, nil)
	view.Update(key('j'))
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.menuSelected = ActionDelete

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, reload := view.Update(cmd())

	assert.Equal(t, "doc-2", docs.deleted)
	assert.Equal(t, "Document deleted", view.Notice())
	assert.NotNil(t, reload)
}

func TestView_ActionMenu_Cancel(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.menuSelected = ActionCancel

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, view.IsShowingMenu())
}

func TestView_ActionMenu_Bounds(t *testing.T) {
	view := loaded(t, &mockDocumentService{}, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	view.Update(key('k'))
	assert.Equal(t, ActionShowText, view.menuSelected)

	for i := 0; i < 10; i++ {
		view.Update(key('j'))
	}
	assert.Equal(t, ActionCancel, view.menuSelected)
}

func TestView_Reload_ClampsSelection(t *testing.T) {
	docs := &mockDocumentService{}
	view := loaded(t, docs, nil)
	view.Update(key('j'))
	view.Update(key('j'))

	docs.docs = testDocuments()[:1]
	_, cmd := view.Update(key('r'))
	view.Update(cmd())

	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Scroll(t *testing.T) {
	many := make([]domain.Document, 20)
	for i := range many {
		many[i] = domain.Document{ID: string(rune('a' + i))}
	}
	view := NewView(nil, &mockDocumentService{docs: many}, nil, "p-1")
	view.SetDimensions(80, 13) // five visible rows
	view.Update(view.Load()())

	for i := 0; i < 7; i++ {
		view.Update(key('j'))
	}

	assert.Equal(t, 3, view.scrollOffset)
	assert.Contains(t, view.View(), "[4-8 of 20]")
}

func TestProcessNotice(t *testing.T) {
	assert.Equal(t, "Document processed", processNotice(nil))
	assert.Equal(t, "Document already up to date", processNotice(&driving.ProcessResult{Cached: true}))
	assert.Equal(t, "Processed 1 pages into 2 chunks (2 indexed)",
		processNotice(&driving.ProcessResult{PageCount: 1, Chunks: 2, Indexed: 2}))
}
