package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// DocumentService manages the ingestion lifecycle of owner documents.
type DocumentService interface {
	// Upload stores the raw file and records a new document.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Process extracts, chunks, embeds and indexes a document.
	Process(ctx context.Context, documentID string) (*ProcessResult, error)

	// ProcessOwner processes every document of an owner with bounded concurrency.
	ProcessOwner(ctx context.Context, ownerID string) ([]ProcessResult, error)

	// ReprocessStale processes documents produced by an older pipeline version.
	ReprocessStale(ctx context.Context) (int, error)

	// Delete removes a document with its chunks, vectors, analysis and blob. Idempotent.
	Delete(ctx context.Context, documentID string) error

	// PurgeOwner deletes every document of an owner and sweeps any vectors
	// left under that owner. Returns the number of documents removed.
	PurgeOwner(ctx context.Context, ownerID string) (int, error)

	// List returns an owner's documents.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// SignedURL returns a time-limited download URL for the raw upload.
	SignedURL(ctx context.Context, documentID string, ttl time.Duration) (string, error)
}

// UploadRequest is a new document upload.
type UploadRequest struct {
	OwnerID  string
	Title    string
	Filename string
	MIMEType string
	Type     domain.DocumentType
	Content  []byte
}

// ProcessResult summarises one document's ingestion.
type ProcessResult struct {
	DocumentID    string                  `json:"documentId"`
	Method        domain.ExtractionMethod `json:"method"`
	PageCount     int                     `json:"pageCount"`
	Chunks        int                     `json:"chunks"`
	Indexed       int                     `json:"indexed"`
	SkippedChunks int                     `json:"skippedChunks"`
	Cached        bool                    `json:"cached"`
	Error         string                  `json:"error,omitempty"`
}
