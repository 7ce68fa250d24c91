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

// ==================== Analysis Store ====================

// analysisStore implements driven.AnalysisStore.
type analysisStore struct {
	store *Store
}

var _ driven.AnalysisStore = (*analysisStore)(nil)

// GetAnalysis returns the record for a document.
func (s *analysisStore) GetAnalysis(ctx context.Context, documentID string) (*domain.AnalysisRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, status, progress, message, result, error,
			input_tokens, output_tokens, started_at, completed_at, updated_at
		FROM analyses WHERE document_id = ?
	`, documentID)

	var r domain.AnalysisRecord
	var status string
	var startedAt, completedAt, updatedAt sql.NullString
	err := row.Scan(&r.DocumentID, &status, &r.Progress, &r.Message, &r.Result, &r.Error,
		&r.Usage.InputTokens, &r.Usage.OutputTokens, &startedAt, &completedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning analysis: %w", err)
	}

	r.Status = domain.AnalysisStatus(status)
	r.StartedAt = parseTime(startedAt)
	r.CompletedAt = parseTime(completedAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// SaveAnalysis creates or replaces the record.
func (s *analysisStore) SaveAnalysis(ctx context.Context, r *domain.AnalysisRecord) error {
	if r == nil || r.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO analyses (document_id, status, progress, message, result, error,
			input_tokens, output_tokens, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			message = excluded.message,
			result = excluded.result,
			error = excluded.error,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`, r.DocumentID, string(r.Status), r.Progress, r.Message, r.Result, r.Error,
		r.Usage.InputTokens, r.Usage.OutputTokens,
		formatTime(r.StartedAt), formatTime(r.CompletedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// DeleteAnalysis removes the record.
func (s *analysisStore) DeleteAnalysis(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM analyses WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	return nil
}

// ==================== Entity Store ====================

// entityStore implements driven.EntityStore.
type entityStore struct {
	store *Store
}

var _ driven.EntityStore = (*entityStore)(nil)

// GetEntity returns an entity by ID.
func (s *entityStore) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, address, facts, valuation, updated_at FROM entities WHERE id = ?", id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// SaveEntity creates or replaces an entity.
func (s *entityStore) SaveEntity(ctx context.Context, e *domain.Entity) error {
	if e == nil || e.ID == "" {
		return domain.ErrInvalidInput
	}

	facts := e.Facts
	if facts == nil {
		facts = map[string]string{}
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("marshalling facts: %w", err)
	}

	var valuation any
	if e.Valuation != nil {
		b, err := json.Marshal(e.Valuation)
		if err != nil {
			return fmt.Errorf("marshalling valuation: %w", err)
		}
		valuation = string(b)
	}

	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO entities (id, address, facts, valuation, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			facts = excluded.facts,
			valuation = excluded.valuation,
			updated_at = excluded.updated_at
	`, e.ID, e.Address, string(factsJSON), valuation, formatTime(updatedAt))
	if err != nil {
		return fmt.Errorf("saving entity: %w", err)
	}
	return nil
}

// ListEntities returns all entities ordered by ID.
func (s *entityStore) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, address, facts, valuation, updated_at FROM entities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return entities, nil
}

func scanEntity(row scanner) (*domain.Entity, error) {
	var e domain.Entity
	var factsJSON string
	var valuation, updatedAt sql.NullString

	err := row.Scan(&e.ID, &e.Address, &factsJSON, &valuation, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}

	if err := json.Unmarshal([]byte(factsJSON), &e.Facts); err != nil {
		return nil, fmt.Errorf("unmarshalling facts: %w", err)
	}
	if valuation.Valid && valuation.String != "" {
		e.Valuation = &domain.Valuation{}
		if err := json.Unmarshal([]byte(valuation.String), e.Valuation); err != nil {
			return nil, fmt.Errorf("unmarshalling valuation: %w", err)
		}
	}
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}
