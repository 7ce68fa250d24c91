package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/custodia-labs/propdocs/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/storage/memory"
	vectormem "github.com/custodia-labs/propdocs/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/postprocessors"
	"github.com/custodia-labs/propdocs/internal/postprocessors/chunker"
)

// countingExtractor returns fixed text and counts calls across goroutines.
type countingExtractor struct {
	text  string
	err   error
	calls atomic.Int32
}

func (e *countingExtractor) Extract(_ context.Context, _ string, blob *domain.Blob, _ domain.ProgressFunc) (*domain.ExtractionResult, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return &domain.ExtractionResult{Text: e.text + "\n" + blob.Filename, Method: domain.ExtractionMethodStructured, PageCount: 3}, nil
}

func inspectionText() string {
	var b strings.Builder
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "Item %d notes the roof shingles are worn near the ridge line. ", i)
	}
	return b.String()
}

type documentFixture struct {
	svc       *DocumentService
	docs      *memory.DocumentStore
	analyses  *memory.AnalysisStore
	blobs     *memBlobs
	vectors   *vectormem.Index
	embedder  *mockEmbedder
	extractor *countingExtractor
	cache     *cachemem.Cache
}

func newDocumentFixture(t *testing.T, opts ...EmbeddingClientOption) *documentFixture {
	t.Helper()
	f := &documentFixture{
		docs:      memory.NewDocumentStore(),
		analyses:  memory.NewAnalysisStore(),
		blobs:     newMemBlobs(),
		vectors:   vectormem.New(),
		embedder:  &mockEmbedder{},
		extractor: &countingExtractor{text: inspectionText()},
		cache:     cachemem.New(nil),
	}
	f.svc = NewDocumentService(DocumentServiceDeps{
		Documents: f.docs,
		Analyses:  f.analyses,
		Blobs:     f.blobs,
		Vectors:   f.vectors,
		Extractor: f.extractor,
		Pipeline: postprocessors.NewPipeline(chunker.New(
			chunker.WithChunkSize(200), chunker.WithOverlap(40), chunker.WithMinLength(20),
		)),
		Embedder:    NewEmbeddingClient(f.embedder, opts...),
		Cache:       f.cache,
		Concurrency: 2,
	})
	return f
}

func (f *documentFixture) upload(t *testing.T, owner, filename string) *domain.Document {
	t.Helper()
	doc, err := f.svc.Upload(context.Background(), driving.UploadRequest{
		OwnerID:  owner,
		Filename: filename,
		Type:     domain.DocumentTypeHomeInspection,
		Content:  []byte("%PDF-1.7 " + filename),
	})
	require.NoError(t, err)
	return doc
}

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentFixture(t)
	fixed := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	f.cache.Put(driven.CacheQueryResponse, ResponseCacheKey("p1", "roof?"), domain.ChatAnswer{})

	doc, err := f.svc.Upload(context.Background(), driving.UploadRequest{
		OwnerID:  "p1",
		Filename: "../../uploads/Inspection.PDF",
		Content:  []byte("%PDF-1.7"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Inspection.PDF", doc.Filename)
	assert.Equal(t, "Inspection.PDF", doc.Title)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Equal(t, domain.DocumentTypeOther, doc.Type)
	assert.Equal(t, "p1/"+doc.ID+"/Inspection.PDF", doc.BlobKey)
	assert.Equal(t, contentHash([]byte("%PDF-1.7")), doc.ContentHash)
	assert.True(t, fixed.Equal(doc.CreatedAt))
	assert.True(t, f.blobs.has(doc.BlobKey))
	assert.Zero(t, f.cache.Len(driven.CacheQueryResponse), "uploads drop the owner's cached answers")

	stored, err := f.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.BlobKey, stored.BlobKey)
	assert.True(t, stored.IsStale(), "unprocessed documents are stale")
}

func TestDocumentService_UploadMIMEType(t *testing.T) {
	f := newDocumentFixture(t)

	doc, err := f.svc.Upload(context.Background(), driving.UploadRequest{
		OwnerID: "p1", Filename: "notes.txt", Title: " HOA notes ",
		MIMEType: "text/plain; charset=utf-8", Type: domain.DocumentTypeHOA,
		Content: []byte("dues"),
	})

	require.NoError(t, err)
	assert.Equal(t, "text/plain", doc.MIMEType)
	assert.Equal(t, "HOA notes", doc.Title)
	assert.Equal(t, domain.DocumentTypeHOA, doc.Type)
}

func TestDocumentService_UploadValidation(t *testing.T) {
	valid := driving.UploadRequest{OwnerID: "p1", Filename: "a.pdf", Content: []byte("x")}
	tests := []struct {
		name   string
		mutate func(r *driving.UploadRequest)
	}{
		{"missing owner", func(r *driving.UploadRequest) { r.OwnerID = " " }},
		{"missing filename", func(r *driving.UploadRequest) { r.Filename = "" }},
		{"empty content", func(r *driving.UploadRequest) { r.Content = nil }},
		{"too large", func(r *driving.UploadRequest) { r.Content = make([]byte, MaxUploadSize+1) }},
		{"unknown type", func(r *driving.UploadRequest) { r.Type = "Survey" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocumentFixture(t)
			req := valid
			tt.mutate(&req)

			_, err := f.svc.Upload(context.Background(), req)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, f.blobs.puts)
		})
	}
}

func TestDocumentService_UploadBlobFailure(t *testing.T) {
	f := newDocumentFixture(t)
	f.blobs.fails = true

	_, err := f.svc.Upload(context.Background(), driving.UploadRequest{OwnerID: "p1", Filename: "a.pdf", Content: []byte("x")})

	assert.ErrorContains(t, err, "store blob")
	docs, listErr := f.svc.List(context.Background(), "p1")
	require.NoError(t, listErr)
	assert.Empty(t, docs)
}

func TestDocumentService_Process(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.upload(t, "p1", "inspection.pdf")

	result, err := f.svc.Process(ctx, doc.ID)

	require.NoError(t, err)
	assert.Equal(t, doc.ID, result.DocumentID)
	assert.Equal(t, domain.ExtractionMethodStructured, result.Method)
	assert.Equal(t, 3, result.PageCount)
	assert.Greater(t, result.Chunks, 1)
	assert.Equal(t, result.Chunks, result.Indexed)
	assert.Zero(t, result.SkippedChunks)
	assert.False(t, result.Cached)

	stored, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineVersion, stored.PipelineVersion)
	assert.True(t, stored.HasText())

	chunks, err := f.docs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, result.Chunks)
	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, count)

	matches, err := f.vectors.Query(ctx, []float32{1, 0, 0}, "p1", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "inspection.pdf", matches[0].Metadata.DocumentTitle)
	assert.Equal(t, domain.DocumentTypeHomeInspection, matches[0].Metadata.DocumentType)
	assert.LessOrEqual(t, len(matches[0].Metadata.ContentPreview), domain.VectorPreviewLength)
	assert.Equal(t, 1, f.cache.Len(driven.CacheProcessedDocument))
}

func TestDocumentService_ProcessTwiceUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.upload(t, "p1", "inspection.pdf")

	first, err := f.svc.Process(ctx, doc.ID)
	require.NoError(t, err)
	embedCalls := f.embedder.calls()

	second, err := f.svc.Process(ctx, doc.ID)

	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, first.Indexed, second.Indexed)
	assert.Equal(t, int32(1), f.extractor.calls.Load())
	assert.Equal(t, embedCalls, f.embedder.calls())
}

func TestDocumentService_ProcessSkipsUnembeddedChunks(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, WithMaxAttempts(1))
	f.embedder.embed = func(_ int, _ []string) ([][]float32, error) {
		return nil, transient(429)
	}
	doc := f.upload(t, "p1", "inspection.pdf")

	result, err := f.svc.Process(ctx, doc.ID)

	require.NoError(t, err)
	assert.Greater(t, result.Chunks, 0)
	assert.Zero(t, result.Indexed)
	assert.Equal(t, result.Chunks, result.SkippedChunks)

	chunks, err := f.docs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, result.Chunks, "chunks stay available for keyword ranking")
	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentService_ProcessWithoutEmbeddings(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()
	docs := memory.NewDocumentStore()
	svc := NewDocumentService(DocumentServiceDeps{
		Documents: docs,
		Blobs:     blobs,
		Extractor: &countingExtractor{text: inspectionText()},
		Pipeline:  postprocessors.NewPipeline(chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(40))),
	})
	doc, err := svc.Upload(ctx, driving.UploadRequest{OwnerID: "p1", Filename: "a.pdf", Content: []byte("%PDF")})
	require.NoError(t, err)

	result, err := svc.Process(ctx, doc.ID)

	require.NoError(t, err)
	assert.Greater(t, result.Chunks, 0)
	assert.Zero(t, result.Indexed)
}

func TestDocumentService_ProcessFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown document", func(t *testing.T) {
		f := newDocumentFixture(t)
		_, err := f.svc.Process(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blob missing", func(t *testing.T) {
		f := newDocumentFixture(t)
		doc := f.upload(t, "p1", "a.pdf")
		require.NoError(t, f.blobs.Delete(ctx, doc.BlobKey))

		_, err := f.svc.Process(ctx, doc.ID)

		var stageErr *domain.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "fetch", stageErr.Stage)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("extraction fails", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.extractor.err = &domain.StageError{DocumentID: "x", Stage: "ocr", Err: domain.ErrExtractionFailed}
		doc := f.upload(t, "p1", "a.pdf")

		_, err := f.svc.Process(ctx, doc.ID)

		assert.ErrorIs(t, err, domain.ErrExtractionFailed)
		stored, getErr := f.docs.GetDocument(ctx, doc.ID)
		require.NoError(t, getErr)
		assert.True(t, stored.IsStale())
	})

	t.Run("embedding rejected", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.embedder.embed = func(_ int, _ []string) ([][]float32, error) {
			return nil, errors.New("401 unauthorized")
		}
		doc := f.upload(t, "p1", "a.pdf")

		_, err := f.svc.Process(ctx, doc.ID)

		var stageErr *domain.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "embed", stageErr.Stage)
	})
}

func TestDocumentService_ProcessOwner(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	good1 := f.upload(t, "p1", "one.pdf")
	broken := f.upload(t, "p1", "two.pdf")
	good2 := f.upload(t, "p1", "three.pdf")
	f.upload(t, "p2", "elsewhere.pdf")
	require.NoError(t, f.blobs.Delete(ctx, broken.BlobKey))

	results, err := f.svc.ProcessOwner(ctx, "p1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, results, 3)
	byID := make(map[string]driving.ProcessResult)
	for _, r := range results {
		byID[r.DocumentID] = r
	}
	assert.Empty(t, byID[good1.ID].Error)
	assert.Empty(t, byID[good2.ID].Error)
	assert.Contains(t, byID[broken.ID].Error, "fetch")
	assert.Equal(t, int32(2), f.extractor.calls.Load())

	_, err = f.svc.ProcessOwner(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_ReprocessStale(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.upload(t, "p1", "one.pdf")
	f.upload(t, "p2", "two.pdf")

	n, err := f.svc.ReprocessStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.ReprocessStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.upload(t, "p1", "inspection.pdf")
	_, err := f.svc.Process(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, f.analyses.SaveAnalysis(ctx, &domain.AnalysisRecord{DocumentID: doc.ID, Status: domain.StatusCompleted}))

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	_, err = f.docs.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := f.docs.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = f.analyses.GetAnalysis(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.blobs.has(doc.BlobKey))
	assert.Zero(t, f.cache.Len(driven.CacheProcessedDocument))

	assert.NoError(t, f.svc.Delete(ctx, doc.ID), "deleting twice is a no-op")
}

func TestDocumentService_PurgeOwner(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)

	other := f.upload(t, "p2", "c.pdf")
	_, err := f.svc.Process(ctx, other.ID)
	require.NoError(t, err)
	kept, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	require.NotZero(t, kept)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		doc := f.upload(t, "p1", name)
		_, err := f.svc.Process(ctx, doc.ID)
		require.NoError(t, err)
	}
	// A vector whose document record is already gone.
	require.NoError(t, f.vectors.Upsert(ctx, "p1", []domain.VectorRecord{{
		Key:      "gone-0",
		Vector:   vectorFor("orphan"),
		Metadata: domain.VectorMetadata{OwnerID: "p1", DocumentID: "gone"},
	}}))

	n, err := f.svc.PurgeOwner(ctx, "p1")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	docs, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, docs)
	count, err := f.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, kept, count, "only the other owner's vectors remain")
	_, err = f.docs.GetDocument(ctx, other.ID)
	assert.NoError(t, err)

	n, err = f.svc.PurgeOwner(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.PurgeOwner(ctx, " ")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDocumentService_SignedURL(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.upload(t, "p1", "a.pdf")

	url, err := f.svc.SignedURL(ctx, doc.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "/blobs/"+doc.BlobKey+"?ttl=15m0s", url)

	url, err = f.svc.SignedURL(ctx, doc.ID, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "ttl=1m0s")

	_, err = f.svc.SignedURL(ctx, "missing", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	f.upload(t, "p1", "a.pdf")
	f.upload(t, "p1", "b.pdf")
	f.upload(t, "p2", "c.pdf")

	docs, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = f.svc.List(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// hookLLM runs onGenerate before answering.
type hookLLM struct {
	mockLLM
	onGenerate func()
}

func (m *hookLLM) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	if m.onGenerate != nil {
		m.onGenerate()
	}
	return m.mockLLM.Generate(ctx, req)
}

func TestDocumentService_ProcessDuringAnalysisKeepsBothWrites(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	doc := f.upload(t, "p1", "inspection.pdf")

	llm := &hookLLM{mockLLM: mockLLM{text: "Roof near end of life."}}
	llm.onGenerate = func() {
		_, err := f.svc.Process(ctx, doc.ID)
		require.NoError(t, err)
		mid, err := f.docs.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.Equal(t, domain.PipelineVersion, mid.PipelineVersion)
	}
	analysis := NewAnalysisService(f.docs, f.analyses, f.blobs, f.extractor, llm, 0)

	snap, err := analysis.StartOrRefresh(ctx, doc.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snap.Status)

	got, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PipelineVersion, got.PipelineVersion)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, doc.ID, got.AnalysisID)

	stale, err := f.docs.ListStaleDocuments(ctx, domain.PipelineVersion)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestDocumentService_AnalysisDuringProcessKeepsLink(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()
	doc := f.upload(t, "p1", "inspection.pdf")
	analysis := NewAnalysisService(f.docs, f.analyses, f.blobs, f.extractor, &mockLLM{text: "Roof near end of life."}, 0)

	f.embedder.embed = func(call int, texts []string) ([][]float32, error) {
		if call == 1 {
			snap, err := analysis.StartOrRefresh(ctx, doc.ID, false)
			require.NoError(t, err)
			require.Equal(t, domain.StatusCompleted, snap.Status)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = vectorFor(text)
		}
		return out, nil
	}

	_, err := f.svc.Process(ctx, doc.ID)
	require.NoError(t, err)

	got, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.AnalysisID)
	assert.Equal(t, domain.PipelineVersion, got.PipelineVersion)
	assert.True(t, got.HasText())
}
