package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure EntityStore implements the interface.
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore is an in-memory implementation of driven.EntityStore.
type EntityStore struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		entities: make(map[string]domain.Entity),
	}
}

// GetEntity returns an entity by ID.
func (s *EntityStore) GetEntity(_ context.Context, id string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entity = copyEntity(entity)
	return &entity, nil
}

// SaveEntity creates or replaces an entity.
func (s *EntityStore) SaveEntity(_ context.Context, entity *domain.Entity) error {
	if entity == nil || entity.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.ID] = copyEntity(*entity)
	return nil
}

// ListEntities returns all entities ordered by ID.
func (s *EntityStore) ListEntities(_ context.Context) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		result = append(result, copyEntity(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func copyEntity(e domain.Entity) domain.Entity {
	if e.Facts != nil {
		facts := make(map[string]string, len(e.Facts))
		for k, v := range e.Facts {
			facts[k] = v
		}
		e.Facts = facts
	}
	if e.Valuation != nil {
		v := *e.Valuation
		e.Valuation = &v
	}
	return e
}
