package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Ensure EntityContextService implements the interface.
var _ driving.EntityService = (*EntityContextService)(nil)

// EntityContextService renders the background context for an owning
// entity and caches it in the entity-context namespace.
type EntityContextService struct {
	store driven.EntityStore
	cache driven.Cache
	now   func() time.Time
}

// NewEntityContextService creates an entity context service. cache may be nil.
func NewEntityContextService(store driven.EntityStore, cache driven.Cache) *EntityContextService {
	return &EntityContextService{store: store, cache: cache, now: time.Now}
}

// Context returns the rendered context block for ownerID. Owners without
// an entity record get an empty context, which is cached like any other.
func (s *EntityContextService) Context(ctx context.Context, ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", domain.NewValidationError("ownerId", "is required")
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(driven.CacheEntityContext, ownerID); ok {
			if text, ok := v.(string); ok {
				logger.Debug("Entity context cache hit for %s", ownerID)
				return text, nil
			}
		}
	}

	entity, err := s.store.GetEntity(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		entity = nil
	case err != nil:
		return "", err
	}

	text := RenderEntityContext(entity)
	if s.cache != nil {
		s.cache.Put(driven.CacheEntityContext, ownerID, text)
	}
	return text, nil
}

// Update persists the entity and drops the owner's cached context and
// cached chat answers, which may quote the old facts.
func (s *EntityContextService) Update(ctx context.Context, entity *domain.Entity) error {
	if entity == nil || strings.TrimSpace(entity.ID) == "" {
		return domain.NewValidationError("id", "is required")
	}
	entity.UpdatedAt = s.now()
	if err := s.store.SaveEntity(ctx, entity); err != nil {
		return fmt.Errorf("save entity: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(driven.CacheEntityContext, entity.ID)
		n := s.cache.Invalidate(driven.CacheQueryResponse, ResponseCachePrefix(entity.ID))
		logger.Debug("Entity %s updated; %d cached answers dropped", entity.ID, n)
	}
	return nil
}

// Get returns the entity for ownerID.
func (s *EntityContextService) Get(ctx context.Context, ownerID string) (*domain.Entity, error) {
	return s.store.GetEntity(ctx, ownerID)
}

// RenderEntityContext formats facts and valuation as a prompt block.
// Facts are sorted by key so the block is stable.
func RenderEntityContext(e *domain.Entity) string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Property")
	if e.Address != "" {
		b.WriteString(": ")
		b.WriteString(e.Address)
	}
	b.WriteString("\n")

	keys := make([]string, 0, len(e.Facts))
	for k := range e.Facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, e.Facts[k])
	}

	if v := e.Valuation; v != nil {
		fmt.Fprintf(&b, "Valuation: estimate $%s (range $%s - $%s)", formatMoney(v.Estimate), formatMoney(v.Low), formatMoney(v.High))
		if v.Source != "" {
			fmt.Fprintf(&b, ", source %s", v.Source)
		}
		if !v.AsOf.IsZero() {
			fmt.Fprintf(&b, ", as of %s", v.AsOf.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatMoney renders whole dollars with thousands separators.
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
