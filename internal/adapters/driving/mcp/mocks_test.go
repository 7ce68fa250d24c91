package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastOwner string
	lastTopK  int
}

func (m *mockSearchService) Search(_ context.Context, ownerID, _ string, topK int) ([]domain.SearchResult, error) {
	m.lastOwner = ownerID
	m.lastTopK = topK
	return m.results, m.err
}

func (m *mockSearchService) RankDocuments(_ context.Context, _, _ string, _ int) ([]domain.RankedCandidate, error) {
	return nil, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) Upload(_ context.Context, _ driving.UploadRequest) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Process(_ context.Context, _ string) (*driving.ProcessResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) ProcessOwner(_ context.Context, _ string) ([]driving.ProcessResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) ReprocessStale(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) PurgeOwner(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) SignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", m.err
}

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	snapshot  domain.AnalysisSnapshot
	err       error
	lastForce bool
}

func (m *mockAnalysisService) StartOrRefresh(_ context.Context, _ string, forceRefresh bool) (domain.AnalysisSnapshot, error) {
	m.lastForce = forceRefresh
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Enqueue(_ context.Context, _ string, _ bool) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Status(_ context.Context, _ string) (domain.AnalysisSnapshot, error) {
	return m.snapshot, m.err
}

// mockChatService replays a fixed list of events.
type mockChatService struct {
	events  []domain.ChatEvent
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChatService) Answer(_ context.Context, req domain.ChatRequest) (<-chan domain.ChatEvent, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.ChatEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type mockEntityService struct {
	context string
	err     error
	owner   string
}

func (m *mockEntityService) Context(_ context.Context, ownerID string) (string, error) {
	m.owner = ownerID
	return m.context, m.err
}

func (m *mockEntityService) Update(context.Context, *domain.Entity) error { return m.err }

func (m *mockEntityService) Get(_ context.Context, ownerID string) (*domain.Entity, error) {
	return &domain.Entity{ID: ownerID}, m.err
}
