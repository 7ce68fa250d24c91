package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// UpdateText writes only the extraction columns of a stored document, so
	// concurrent writers of other columns are not overwritten.
	// Returns domain.ErrNotFound if absent.
	UpdateText(ctx context.Context, id string, update domain.TextUpdate) error

	// SetAnalysisID writes only the analysis link of a stored document.
	// Returns domain.ErrNotFound if absent.
	SetAnalysisID(ctx context.Context, id, analysisID string, updatedAt time.Time) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns documents for an owner, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// ListStaleDocuments returns documents not processed by the given pipeline version.
	ListStaleDocuments(ctx context.Context, pipelineVersion string) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks. Idempotent.
	DeleteDocument(ctx context.Context, id string) error

	// ReplaceChunks atomically replaces the full chunk set of a document.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves one chunk by document and index.
	GetChunk(ctx context.Context, documentID string, index int) (*domain.Chunk, error)

	// ListOwnerChunks returns every chunk of an owner's documents.
	ListOwnerChunks(ctx context.Context, ownerID string) ([]domain.Chunk, error)
}

// AnalysisStore persists analysis records keyed by document ID.
type AnalysisStore interface {
	// GetAnalysis returns the record or domain.ErrNotFound.
	GetAnalysis(ctx context.Context, documentID string) (*domain.AnalysisRecord, error)

	// SaveAnalysis creates or replaces the record.
	SaveAnalysis(ctx context.Context, record *domain.AnalysisRecord) error

	// DeleteAnalysis removes the record. Idempotent.
	DeleteAnalysis(ctx context.Context, documentID string) error
}

// EntityStore is the owning-entity store used to build entity context.
type EntityStore interface {
	// GetEntity returns the entity or domain.ErrNotFound.
	GetEntity(ctx context.Context, id string) (*domain.Entity, error)

	// SaveEntity creates or replaces the entity.
	SaveEntity(ctx context.Context, entity *domain.Entity) error

	// ListEntities returns all entities.
	ListEntities(ctx context.Context) ([]domain.Entity, error)
}
