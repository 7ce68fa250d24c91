package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// EntityService manages owning entities and their cached prompt context.
type EntityService interface {
	// Context returns the rendered background context for an owner.
	Context(ctx context.Context, ownerID string) (string, error)

	// Update persists the entity and invalidates derived cache entries.
	Update(ctx context.Context, entity *domain.Entity) error

	// Get returns an entity.
	Get(ctx context.Context, ownerID string) (*domain.Entity, error)
}
