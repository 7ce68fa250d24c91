package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, owner_id, title, filename, mime_type, type, blob_key, text, text_method,
	page_count, content_hash, pipeline_version, analysis_id, metadata, created_at, updated_at`

const chunkColumns = `id, document_id, owner_id, chunk_index, start_offset, end_offset, content, section, embedding`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now()
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			type = excluded.type,
			blob_key = excluded.blob_key,
			text = excluded.text,
			text_method = excluded.text_method,
			page_count = excluded.page_count,
			content_hash = excluded.content_hash,
			pipeline_version = excluded.pipeline_version,
			analysis_id = excluded.analysis_id,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.OwnerID, doc.Title, doc.Filename, doc.MIMEType, string(doc.Type), doc.BlobKey,
		doc.Text, string(doc.TextMethod), doc.PageCount, doc.ContentHash, doc.PipelineVersion,
		doc.AnalysisID, string(metadataJSON), formatTime(createdAt), formatTime(updatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// UpdateText writes only the extraction columns.
func (s *documentStore) UpdateText(ctx context.Context, id string, u domain.TextUpdate) error {
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET
			text = ?,
			text_method = ?,
			page_count = ?,
			content_hash = CASE WHEN ? = '' THEN content_hash ELSE ? END,
			pipeline_version = CASE WHEN ? = '' THEN pipeline_version ELSE ? END,
			updated_at = ?
		WHERE id = ?
	`, u.Text, string(u.Method), u.PageCount, u.ContentHash, u.ContentHash,
		u.PipelineVersion, u.PipelineVersion, formatTime(updatedAt), id)
	return checkUpdated(res, err, "updating document text")
}

// SetAnalysisID writes only the analysis link.
func (s *documentStore) SetAnalysisID(ctx context.Context, id, analysisID string, updatedAt time.Time) error {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE documents SET analysis_id = ?, updated_at = ? WHERE id = ?`,
		analysisID, formatTime(updatedAt), id)
	return checkUpdated(res, err, "linking analysis")
}

// checkUpdated maps an UPDATE that matched no row to domain.ErrNotFound.
func checkUpdated(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns documents for an owner, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? ORDER BY created_at DESC, id ASC`, ownerID)
}

// ListStaleDocuments returns documents whose pipeline version differs.
func (s *documentStore) ListStaleDocuments(ctx context.Context, pipelineVersion string) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE pipeline_version != ? ORDER BY created_at DESC, id ASC`, pipelineVersion)
}

func (s *documentStore) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document. Chunks go with it through the foreign key.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
}

// ReplaceChunks swaps the chunk set of a document in one transaction.
func (s *documentStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (`+chunkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing chunk insert: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			if _, err := stmt.ExecContext(ctx, c.ID, documentID, c.OwnerID, c.Index, c.Start, c.End,
				c.Content, c.Section, float32SliceToBytes(c.Embedding)); err != nil {
				return fmt.Errorf("inserting chunk %d: %w", c.Index, err)
			}
		}
		return nil
	})
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ? ORDER BY chunk_index`, documentID)
}

// GetChunk retrieves one chunk by document and index.
func (s *documentStore) GetChunk(ctx context.Context, documentID string, index int) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ? AND chunk_index = ?`, documentID, index)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return chunk, err
}

// ListOwnerChunks returns every chunk of an owner's documents.
func (s *documentStore) ListOwnerChunks(ctx context.Context, ownerID string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks
		WHERE owner_id = ? ORDER BY document_id, chunk_index`, ownerID)
}

func (s *documentStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, method, metadataJSON string
	var createdAt, updatedAt sql.NullString

	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Filename, &doc.MIMEType, &docType,
		&doc.BlobKey, &doc.Text, &method, &doc.PageCount, &doc.ContentHash, &doc.PipelineVersion,
		&doc.AnalysisID, &metadataJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.TextMethod = domain.ExtractionMethod(method)
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)

	if metadataJSON != "" && metadataJSON != "{}" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding []byte

	err := row.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.Index, &c.Start, &c.End,
		&c.Content, &c.Section, &embedding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	c.Embedding = bytesToFloat32Slice(embedding)
	return &c, nil
}
