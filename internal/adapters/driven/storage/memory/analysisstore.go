package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure AnalysisStore implements the interface.
var _ driven.AnalysisStore = (*AnalysisStore)(nil)

// AnalysisStore is an in-memory implementation of driven.AnalysisStore.
type AnalysisStore struct {
	mu      sync.RWMutex
	records map[string]domain.AnalysisRecord
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		records: make(map[string]domain.AnalysisRecord),
	}
}

// GetAnalysis returns the record for a document.
func (s *AnalysisStore) GetAnalysis(_ context.Context, documentID string) (*domain.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// SaveAnalysis creates or replaces the record.
func (s *AnalysisStore) SaveAnalysis(_ context.Context, record *domain.AnalysisRecord) error {
	if record == nil || record.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.DocumentID] = *record
	return nil
}

// DeleteAnalysis removes the record.
func (s *AnalysisStore) DeleteAnalysis(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, documentID)
	return nil
}
