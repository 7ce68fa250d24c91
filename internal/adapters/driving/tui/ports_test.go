package tui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	Results []domain.SearchResult
	Err     error
}

func (m *MockSearchService) Search(context.Context, string, string, int) ([]domain.SearchResult, error) {
	return m.Results, m.Err
}

func (m *MockSearchService) RankDocuments(context.Context, string, string, int) ([]domain.RankedCandidate, error) {
	return nil, nil
}

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	Docs []domain.Document
	Doc  *domain.Document
	Err  error
}

func (m *MockDocumentService) Upload(context.Context, driving.UploadRequest) (*domain.Document, error) {
	return nil, m.Err
}

func (m *MockDocumentService) Process(_ context.Context, id string) (*driving.ProcessResult, error) {
	return &driving.ProcessResult{DocumentID: id}, m.Err
}

func (m *MockDocumentService) ProcessOwner(context.Context, string) ([]driving.ProcessResult, error) {
	return nil, m.Err
}

func (m *MockDocumentService) ReprocessStale(context.Context) (int, error) { return 0, m.Err }

func (m *MockDocumentService) Delete(context.Context, string) error { return m.Err }

func (m *MockDocumentService) PurgeOwner(context.Context, string) (int, error) { return 0, m.Err }

func (m *MockDocumentService) List(context.Context, string) ([]domain.Document, error) {
	return m.Docs, m.Err
}

func (m *MockDocumentService) Get(context.Context, string) (*domain.Document, error) {
	if m.Doc == nil {
		return nil, domain.ErrNotFound
	}
	return m.Doc, m.Err
}

func (m *MockDocumentService) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", m.Err
}

// MockAnalysisService implements driving.AnalysisService for testing.
type MockAnalysisService struct {
	Snapshot domain.AnalysisSnapshot
}

func (m *MockAnalysisService) StartOrRefresh(context.Context, string, bool) (domain.AnalysisSnapshot, error) {
	return m.Snapshot, nil
}

func (m *MockAnalysisService) Enqueue(context.Context, string, bool) (domain.AnalysisSnapshot, error) {
	return m.Snapshot, nil
}

func (m *MockAnalysisService) Status(context.Context, string) (domain.AnalysisSnapshot, error) {
	return m.Snapshot, nil
}

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	Events []domain.ChatEvent
}

func (m *MockChatService) Answer(context.Context, domain.ChatRequest) (<-chan domain.ChatEvent, error) {
	ch := make(chan domain.ChatEvent, len(m.Events))
	for _, ev := range m.Events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func TestPorts_Validate(t *testing.T) {
	full := func() *Ports {
		return &Ports{
			Search:    &MockSearchService{},
			Documents: &MockDocumentService{},
			Chat:      &MockChatService{},
		}
	}

	assert.NoError(t, full().Validate())

	p := full()
	p.Search = nil
	assert.ErrorIs(t, p.Validate(), ErrMissingSearchService)

	p = full()
	p.Documents = nil
	assert.ErrorIs(t, p.Validate(), ErrMissingDocumentService)

	p = full()
	p.Chat = nil
	assert.ErrorIs(t, p.Validate(), ErrMissingChatService)
}

func TestPorts_AnalysisOptional(t *testing.T) {
	p := &Ports{
		Search:    &MockSearchService{},
		Documents: &MockDocumentService{},
		Chat:      &MockChatService{},
		Analysis:  nil,
	}

	assert.NoError(t, p.Validate())
}
