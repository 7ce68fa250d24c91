package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex as a brute-force scan over an
// owner's rows. Owners hold a few hundred chunks, so no ANN structure is kept.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert stores records for an owner, replacing any with the same key.
func (x *vectorIndex) Upsert(ctx context.Context, ownerID string, records []domain.VectorRecord) error {
	if err := vector.ValidateRecords(ownerID, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	return x.store.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vectors (key, owner_id, document_id, chunk_index, vector, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				owner_id = excluded.owner_id,
				document_id = excluded.document_id,
				chunk_index = excluded.chunk_index,
				vector = excluded.vector,
				metadata = excluded.metadata
		`)
		if err != nil {
			return fmt.Errorf("preparing vector upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling vector metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, r.Key, ownerID, r.Metadata.DocumentID, r.Metadata.ChunkIndex,
				float32SliceToBytes(r.Vector), string(meta)); err != nil {
				return fmt.Errorf("upserting vector %s: %w", r.Key, err)
			}
		}
		return nil
	})
}

// Query returns up to topK of the owner's vectors nearest to v.
func (x *vectorIndex) Query(ctx context.Context, v []float32, ownerID string, topK int) ([]domain.VectorMatch, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("ownerId", "is required")
	}

	rows, err := x.store.db.QueryContext(ctx, "SELECT key, vector, metadata FROM vectors WHERE owner_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []domain.VectorMatch
	for rows.Next() {
		var key, meta string
		var blob []byte
		if err := rows.Scan(&key, &blob, &meta); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		m := domain.VectorMatch{Key: key, Similarity: vector.Cosine(v, bytesToFloat32Slice(blob))}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling vector metadata: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vector.TopK(matches, topK), nil
}

// DeleteByDocument removes every vector of a document.
func (x *vectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := x.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting document vectors: %w", err)
	}
	return nil
}

// DeleteByOwner removes every vector of an owner.
func (x *vectorIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := x.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE owner_id = ?", ownerID); err != nil {
		return fmt.Errorf("deleting owner vectors: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (x *vectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Close is a no-op; the Store owns the connection.
func (x *vectorIndex) Close() error {
	return nil
}
