package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultIngestConcurrency bounds document-level fan-out so embedding
// provider rate limits are not overwhelmed.
const DefaultIngestConcurrency = 5

// DefaultSignedURLTTL is used when no TTL is requested.
const DefaultSignedURLTTL = 15 * time.Minute

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 50 << 20

// DocumentService manages the ingestion lifecycle: upload, extraction,
// chunking, embedding, indexing and deletion.
type DocumentService struct {
	docs        driven.DocumentStore
	analyses    driven.AnalysisStore
	blobs       driven.BlobStore
	vectors     driven.VectorIndex
	extractor   documentExtractor
	pipeline    driven.PostProcessorPipeline
	embedder    *EmbeddingClient
	cache       driven.Cache
	concurrency int
	now         func() time.Time
}

// DocumentServiceDeps groups the collaborators of a DocumentService.
// Vectors, Embedder and Cache may be nil.
type DocumentServiceDeps struct {
	Documents   driven.DocumentStore
	Analyses    driven.AnalysisStore
	Blobs       driven.BlobStore
	Vectors     driven.VectorIndex
	Extractor   documentExtractor
	Pipeline    driven.PostProcessorPipeline
	Embedder    *EmbeddingClient
	Cache       driven.Cache
	Concurrency int
}

// NewDocumentService creates a document service.
func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	if deps.Concurrency <= 0 {
		deps.Concurrency = DefaultIngestConcurrency
	}
	return &DocumentService{
		docs:        deps.Documents,
		analyses:    deps.Analyses,
		blobs:       deps.Blobs,
		vectors:     deps.Vectors,
		extractor:   deps.Extractor,
		pipeline:    deps.Pipeline,
		embedder:    deps.Embedder,
		cache:       deps.Cache,
		concurrency: deps.Concurrency,
		now:         time.Now,
	}
}

// Upload validates and stores a new document. The blob is stored under
// {ownerId}/{documentId}/{filename}.
func (s *DocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, domain.NewValidationError("ownerId", "is required")
	}
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, domain.NewValidationError("filename", "is required")
	}
	if len(req.Content) == 0 {
		return nil, domain.NewValidationError("content", "is empty")
	}
	if len(req.Content) > MaxUploadSize {
		return nil, domain.NewValidationError("content", fmt.Sprintf("exceeds %d bytes", MaxUploadSize))
	}
	docType := req.Type
	if docType == "" {
		docType = domain.DocumentTypeOther
	}
	if !docType.IsValid() {
		return nil, domain.NewValidationError("type", fmt.Sprintf("unknown document type %q", docType))
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	now := s.now()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		Title:       strings.TrimSpace(req.Title),
		Filename:    filename,
		MIMEType:    mimeType,
		Type:        docType,
		ContentHash: contentHash(req.Content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if doc.Title == "" {
		doc.Title = filename
	}
	doc.BlobKey = fmt.Sprintf("%s/%s/%s", doc.OwnerID, doc.ID, filename)

	if err := s.blobs.Put(ctx, doc.BlobKey, req.Content); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		_ = s.blobs.Delete(ctx, doc.BlobKey)
		return nil, fmt.Errorf("save document: %w", err)
	}
	s.invalidateOwner(doc.OwnerID)

	logger.Info("Uploaded %s (%s, %d bytes) for %s", doc.ID, doc.Type, len(req.Content), doc.OwnerID)
	return doc, nil
}

// Process extracts, chunks, embeds and indexes one document. Chunks whose
// embedding could not be produced are stored but not indexed.
func (s *DocumentService) Process(ctx context.Context, documentID string) (*driving.ProcessResult, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	logger.Section("Process Document")
	logger.Debug("Document %s (%s)", doc.ID, doc.DisplayTitle())

	content, err := s.blobs.Fetch(ctx, doc.BlobKey)
	if err != nil {
		return nil, &domain.StageError{DocumentID: doc.ID, Stage: "fetch", Err: err}
	}
	hash := contentHash(content)
	result := &driving.ProcessResult{DocumentID: doc.ID}

	// A current cache entry means the text for these bytes is already known.
	if entry, ok := s.cachedDocument(doc.ID); ok && entry.IsCurrent(hash) {
		result.Cached = true
		if !doc.IsStale() && doc.ContentHash == hash {
			result.Method = entry.Method
			result.PageCount = entry.PageCount
			result.Chunks = len(entry.Chunks)
			result.Indexed = countEmbedded(entry.Chunks)
			result.SkippedChunks = result.Chunks - result.Indexed
			logger.Debug("Processed-document cache hit, nothing to do")
			return result, nil
		}
		doc.Text, doc.TextMethod, doc.PageCount = entry.Text, entry.Method, entry.PageCount
	} else if !(doc.HasText() && doc.ContentHash == hash) {
		blob := &domain.Blob{Filename: doc.Filename, MIMEType: doc.MIMEType, Content: content}
		extracted, err := s.extractor.Extract(ctx, doc.ID, blob, nil)
		if err != nil {
			return nil, err
		}
		doc.Text, doc.TextMethod, doc.PageCount = extracted.Text, extracted.Method, extracted.PageCount
	}
	doc.ContentHash = hash
	result.Method = doc.TextMethod
	result.PageCount = doc.PageCount

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, &domain.StageError{DocumentID: doc.ID, Stage: "chunk", Err: err}
	}
	result.Chunks = len(chunks)

	if err := s.embedAndIndex(ctx, doc, chunks); err != nil {
		return nil, err
	}
	result.Indexed = countEmbedded(chunks)
	result.SkippedChunks = result.Chunks - result.Indexed

	if err := s.docs.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, &domain.StageError{DocumentID: doc.ID, Stage: "save", Err: err}
	}
	update := domain.TextUpdate{
		Text:            doc.Text,
		Method:          doc.TextMethod,
		PageCount:       doc.PageCount,
		ContentHash:     hash,
		PipelineVersion: domain.PipelineVersion,
		UpdatedAt:       s.now(),
	}
	update.Apply(doc)
	if err := s.docs.UpdateText(ctx, doc.ID, update); err != nil {
		return nil, &domain.StageError{DocumentID: doc.ID, Stage: "save", Err: err}
	}

	if s.cache != nil {
		s.cache.Put(driven.CacheProcessedDocument, doc.ID, domain.ProcessedDocument{
			PipelineVersion: domain.PipelineVersion,
			ContentHash:     hash,
			Text:            doc.Text,
			Method:          doc.TextMethod,
			PageCount:       doc.PageCount,
			Chunks:          chunks,
		})
	}
	s.invalidateOwner(doc.OwnerID)

	logger.Info("Processed %s: %d chunks, %d indexed, %d skipped", doc.ID, result.Chunks, result.Indexed, result.SkippedChunks)
	return result, nil
}

// embedAndIndex embeds chunk contents and replaces the document's vectors.
// Without an embedder or index the chunks are kept for keyword ranking only.
func (s *DocumentService) embedAndIndex(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if s.vectors == nil || !s.embedder.Available() {
		logger.Debug("Embeddings unavailable, skipping vector indexing")
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return &domain.StageError{DocumentID: doc.ID, Stage: "embed", Err: err}
	}

	records := make([]domain.VectorRecord, 0, len(chunks))
	for i := range chunks {
		if vectors[i] == nil {
			continue
		}
		chunks[i].Embedding = vectors[i]
		records = append(records, domain.VectorRecord{
			Key:    chunks[i].VectorKey(),
			Vector: vectors[i],
			Metadata: domain.VectorMetadata{
				OwnerID:        doc.OwnerID,
				DocumentID:     doc.ID,
				ChunkIndex:     chunks[i].Index,
				ContentPreview: chunks[i].Preview(domain.VectorPreviewLength),
				DocumentTitle:  doc.DisplayTitle(),
				DocumentType:   doc.Type,
			},
		})
	}

	if err := s.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
		return &domain.StageError{DocumentID: doc.ID, Stage: "index", Err: err}
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.vectors.Upsert(ctx, doc.OwnerID, records); err != nil {
		return &domain.StageError{DocumentID: doc.ID, Stage: "index", Err: err}
	}
	return nil
}

// ProcessOwner processes every document of an owner, at most
// the configured number at a time. Every document is attempted; failures
// are reported per result and joined into the returned error.
func (s *DocumentService) ProcessOwner(ctx context.Context, ownerID string) ([]driving.ProcessResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.NewValidationError("ownerId", "is required")
	}
	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.processAll(ctx, docs)
}

// ReprocessStale reprocesses documents produced by an older pipeline
// version and returns how many succeeded.
func (s *DocumentService) ReprocessStale(ctx context.Context) (int, error) {
	docs, err := s.docs.ListStaleDocuments(ctx, domain.PipelineVersion)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	logger.Info("Reprocessing %d stale documents", len(docs))

	results, err := s.processAll(ctx, docs)
	ok := 0
	for _, r := range results {
		if r.Error == "" {
			ok++
		}
	}
	return ok, err
}

func (s *DocumentService) processAll(ctx context.Context, docs []domain.Document) ([]driving.ProcessResult, error) {
	results := make([]driving.ProcessResult, len(docs))

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range docs {
		id := docs[i].ID
		g.Go(func() error {
			res, err := s.Process(gctx, id)
			if err != nil {
				results[i] = driving.ProcessResult{DocumentID: id, Error: err.Error()}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Delete removes a document's vectors, chunks, analysis, blob and record.
// Deleting a missing document is a no-op.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if s.vectors != nil {
		if err := s.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}
	if s.analyses != nil {
		if err := s.analyses.DeleteAnalysis(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete analysis: %w", err)
		}
	}
	if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := s.docs.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(driven.CacheProcessedDocument, doc.ID)
	}
	s.invalidateOwner(doc.OwnerID)
	logger.Info("Deleted document %s", doc.ID)
	return nil
}

// PurgeOwner deletes every document of an owner, then removes any vectors
// still indexed under the owner, such as those of a document whose record
// was deleted mid-ingestion.
func (s *DocumentService) PurgeOwner(ctx context.Context, ownerID string) (int, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, domain.NewValidationError("ownerId", "is required")
	}
	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range docs {
		if err := s.Delete(ctx, docs[i].ID); err != nil {
			return removed, fmt.Errorf("purge %s: %w", docs[i].ID, err)
		}
		removed++
	}

	if s.vectors != nil {
		if err := s.vectors.DeleteByOwner(ctx, ownerID); err != nil {
			return removed, fmt.Errorf("delete owner vectors: %w", err)
		}
	}
	s.invalidateOwner(ownerID)
	logger.Info("Purged %d documents for owner %s", removed, ownerID)
	return removed, nil
}

// List returns an owner's documents.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.NewValidationError("ownerId", "is required")
	}
	return s.docs.ListDocuments(ctx, ownerID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, documentID)
}

// SignedURL returns a time-limited URL for the document's raw upload.
func (s *DocumentService) SignedURL(ctx context.Context, documentID string, ttl time.Duration) (string, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return s.blobs.SignedURL(doc.BlobKey, ttl)
}

func (s *DocumentService) cachedDocument(documentID string) (domain.ProcessedDocument, bool) {
	if s.cache == nil {
		return domain.ProcessedDocument{}, false
	}
	v, ok := s.cache.Get(driven.CacheProcessedDocument, documentID)
	if !ok {
		return domain.ProcessedDocument{}, false
	}
	entry, ok := v.(domain.ProcessedDocument)
	return entry, ok
}

// invalidateOwner drops cached answers that may no longer reflect the owner's documents.
func (s *DocumentService) invalidateOwner(ownerID string) {
	if s.cache == nil {
		return
	}
	if n := s.cache.Invalidate(driven.CacheQueryResponse, ResponseCachePrefix(ownerID)); n > 0 {
		logger.Debug("Dropped %d cached answers for %s", n, ownerID)
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func countEmbedded(chunks []domain.Chunk) int {
	n := 0
	for i := range chunks {
		if chunks[i].Embedding != nil {
			n++
		}
	}
	return n
}
