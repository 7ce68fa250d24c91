package cli

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

type mockSearchService struct {
	results []domain.SearchResult
	ranked  []domain.RankedCandidate
	err     error

	lastOwner string
	lastQuery string
	lastTopK  int
}

func (m *mockSearchService) Search(_ context.Context, ownerID, query string, topK int) ([]domain.SearchResult, error) {
	m.lastOwner, m.lastQuery, m.lastTopK = ownerID, query, topK
	return m.results, m.err
}

func (m *mockSearchService) RankDocuments(
	_ context.Context, ownerID, query string, topK int,
) ([]domain.RankedCandidate, error) {
	m.lastOwner, m.lastQuery, m.lastTopK = ownerID, query, topK
	return m.ranked, m.err
}

type mockDocumentService struct {
	mu sync.Mutex

	documents    []domain.Document
	document     *domain.Document
	result       *driving.ProcessResult
	ownerResults []driving.ProcessResult
	staleCount   int
	url          string
	err          error
	processErr   error

	uploads   []driving.UploadRequest
	processed []string
	deleted   []string
	purged    []string
	lastTTL   time.Duration
}

func (m *mockDocumentService) Upload(_ context.Context, req driving.UploadRequest) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.uploads = append(m.uploads, req)
	return &domain.Document{
		ID:       "doc-new",
		OwnerID:  req.OwnerID,
		Title:    req.Title,
		Filename: req.Filename,
		Type:     req.Type,
	}, nil
}

func (m *mockDocumentService) Process(_ context.Context, id string) (*driving.ProcessResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, id)
	if m.processErr != nil {
		return nil, m.processErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driving.ProcessResult{DocumentID: id, Method: domain.ExtractionMethodStructured, PageCount: 3, Chunks: 5, Indexed: 5}, nil
}

func (m *mockDocumentService) ProcessOwner(_ context.Context, _ string) ([]driving.ProcessResult, error) {
	return m.ownerResults, m.err
}

func (m *mockDocumentService) ReprocessStale(_ context.Context) (int, error) {
	return m.staleCount, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) PurgeOwner(_ context.Context, ownerID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.purged = append(m.purged, ownerID)
	return len(m.documents), nil
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.document == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, nil
}

func (m *mockDocumentService) SignedURL(_ context.Context, _ string, ttl time.Duration) (string, error) {
	m.lastTTL = ttl
	return m.url, m.err
}

func (m *mockDocumentService) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

type mockAnalysisService struct {
	snapshot domain.AnalysisSnapshot
	err      error

	lastCall  string
	lastForce bool
}

func (m *mockAnalysisService) StartOrRefresh(_ context.Context, _ string, force bool) (domain.AnalysisSnapshot, error) {
	m.lastCall, m.lastForce = "start", force
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Enqueue(_ context.Context, _ string, force bool) (domain.AnalysisSnapshot, error) {
	m.lastCall, m.lastForce = "enqueue", force
	return m.snapshot, m.err
}

func (m *mockAnalysisService) Status(_ context.Context, _ string) (domain.AnalysisSnapshot, error) {
	m.lastCall = "status"
	return m.snapshot, m.err
}

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
	entity   *domain.Entity
	rendered string
	err      error
	updated  []*domain.Entity
}

func (m *mockEntityService) Context(_ context.Context, _ string) (string, error) {
	return m.rendered, m.err
}

func (m *mockEntityService) Update(_ context.Context, e *domain.Entity) error {
	if m.err != nil {
		return m.err
	}
	m.updated = append(m.updated, e)
	return nil
}

func (m *mockEntityService) Get(_ context.Context, _ string) (*domain.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.entity == nil {
		return nil, domain.ErrNotFound
	}
	return m.entity, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	err         error
	validateErr error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider, m.settings.Embedding.Model, m.settings.Embedding.APIKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider, m.settings.LLM.Model, m.settings.LLM.APIKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig(_ context.Context) error { return nil }

func (m *mockSettingsService) ValidateLLMConfig(_ context.Context) error { return m.validateErr }

func testDocument() domain.Document {
	return domain.Document{
		ID:              "doc-1",
		OwnerID:         "p1",
		Title:           "Inspection 2024",
		Filename:        "inspection.pdf",
		MIMEType:        "application/pdf",
		Type:            domain.DocumentTypeHomeInspection,
		Text:            "ROOF\nAsphalt shingle, 18 years old.\n" + strings.Repeat("Granule loss observed on the south slope. ", 4),
		TextMethod:      domain.ExtractionMethodStructured,
		PageCount:       42,
		PipelineVersion: domain.PipelineVersion,
	}
}

// setupTestServices wires mock services with canned data. The returned
// func clears them and restores flag defaults.
func setupTestServices() func() {
	doc := testDocument()
	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOllama
	settings.Embedding.Model = "nomic-embed-text"
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.Model = "gpt-4o-mini"
	settings.LLM.APIKey = "sk-test-1234567890"

	SetServices(Services{
		Search: &mockSearchService{
			results: []domain.SearchResult{{
				Document: doc,
				Chunk:    domain.Chunk{Index: 2, Section: "Roof", Content: "The roof shows granule loss."},
				Score:    0.81,
			}},
			ranked: []domain.RankedCandidate{{Candidate: domain.Candidate{Document: &doc}, Score: 0.7}},
		},
		Documents: &mockDocumentService{
			documents: []domain.Document{doc},
			document:  &doc,
			url:       "http://localhost:8080/blobs/p1/doc-1.pdf?expires=1&signature=abc",
		},
		Analysis: &mockAnalysisService{snapshot: domain.AnalysisSnapshot{
			DocumentID: "doc-1",
			Status:     domain.StatusCompleted,
			Progress:   100,
			Result:     "## Summary\nRoof near end of life.",
			Usage:      domain.Usage{InputTokens: 1200, OutputTokens: 300},
		}},
		Chat: &mockChatService{events: []domain.ChatEvent{
			{Type: domain.ChatEventContent, Content: "Per Inspection 2024 "},
			{Type: domain.ChatEventContent, Content: "the roof is old."},
			{
				Type:      domain.ChatEventComplete,
				Response:  "Per Inspection 2024 the roof is old.",
				Citations: []domain.Citation{{DocumentID: "doc-1", Title: "Inspection 2024", Spans: []domain.Span{{Start: 4, End: 19}}}},
			},
		}},
		Entities: &mockEntityService{
			entity:   &domain.Entity{ID: "p1", Address: "12 Elm St", Facts: map[string]string{"bedrooms": "3"}},
			rendered: "Property: 12 Elm St\n- bedrooms: 3",
		},
		Settings: &mockSettingsService{settings: settings},
	})

	return func() {
		SetServices(Services{})
		resetFlags()
	}
}

// resetFlags restores package flag variables to their defaults between runs.
func resetFlags() {
	searchLimit, searchJSON, searchDocuments = 10, false, false
	uploadType, uploadTitle, uploadProcess = "", "", false
	processDocID, processStale = "", false
	analyzeForce, analyzeAsync, analyzeStatus, analyzeJSON = false, false, false, false
	askJSON, askStream, askHistory = false, false, ""
	documentURLTTL = 15 * time.Minute
	watchDebounce, watchType = 2*time.Second, ""
	serveAddr, mcpAddr = "", ""
	tuiOwner = ""
	tasksHistory, versionShort = 0, false
	verbose = false
}

type mockScheduler struct {
	tasks   []domain.ScheduledTask
	history []domain.TaskResult
	result  domain.TaskResult
	err     error

	ran          []string
	historyLimit int
}

func (m *mockScheduler) Start(context.Context) error { return nil }
func (m *mockScheduler) Stop() error                 { return nil }

func (m *mockScheduler) Tasks(context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, m.err
}

func (m *mockScheduler) History(_ context.Context, _ string, limit int) ([]domain.TaskResult, error) {
	m.historyLimit = limit
	return m.history, m.err
}

func (m *mockScheduler) RunNow(_ context.Context, id string) (domain.TaskResult, error) {
	m.ran = append(m.ran, id)
	return m.result, m.err
}
