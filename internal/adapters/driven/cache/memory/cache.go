// Package memory provides the process cache layer on expirable LRUs, one
// per namespace.
package memory

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.Cache = (*Cache)(nil)

// NamespaceConfig bounds one namespace. A zero TTL never expires.
type NamespaceConfig struct {
	Size int
	TTL  time.Duration
}

// Cache holds one expirable LRU per namespace. Each LRU is safe for
// concurrent use.
type Cache struct {
	spaces map[driven.CacheNamespace]*expirable.LRU[string, any]
}

// New creates a cache with the given per-namespace bounds. Namespaces not
// listed get a small default.
func New(cfg map[driven.CacheNamespace]NamespaceConfig) *Cache {
	c := &Cache{spaces: make(map[driven.CacheNamespace]*expirable.LRU[string, any])}
	for _, ns := range []driven.CacheNamespace{
		driven.CacheEntityContext,
		driven.CacheProcessedDocument,
		driven.CacheQueryResponse,
	} {
		nc, ok := cfg[ns]
		if !ok || nc.Size <= 0 {
			nc.Size = 256
		}
		c.spaces[ns] = expirable.NewLRU[string, any](nc.Size, nil, nc.TTL)
	}
	return c
}

// NewFromSettings builds the three namespaces from cache settings. Processed
// documents never expire by time; they are replaced on a version or hash change.
func NewFromSettings(s domain.CacheSettings) *Cache {
	return New(map[driven.CacheNamespace]NamespaceConfig{
		driven.CacheEntityContext:     {Size: s.EntitySize, TTL: s.EntityTTL},
		driven.CacheQueryResponse:     {Size: s.ResponseSize, TTL: s.ResponseTTL},
		driven.CacheProcessedDocument: {Size: s.DocumentSize},
	})
}

// Get returns the value and whether it was present.
func (c *Cache) Get(ns driven.CacheNamespace, key string) (any, bool) {
	lru, ok := c.spaces[ns]
	if !ok {
		return nil, false
	}
	return lru.Get(key)
}

// Put stores value under key.
func (c *Cache) Put(ns driven.CacheNamespace, key string, value any) {
	if lru, ok := c.spaces[ns]; ok {
		lru.Add(key, value)
	}
}

// Invalidate removes key, or every key sharing the prefix when keyOrPrefix
// ends in "*".
func (c *Cache) Invalidate(ns driven.CacheNamespace, keyOrPrefix string) int {
	lru, ok := c.spaces[ns]
	if !ok {
		return 0
	}

	prefix, isPrefix := strings.CutSuffix(keyOrPrefix, "*")
	if !isPrefix {
		if lru.Remove(keyOrPrefix) {
			return 1
		}
		return 0
	}

	removed := 0
	for _, key := range lru.Keys() {
		if strings.HasPrefix(key, prefix) && lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries in a namespace.
func (c *Cache) Len(ns driven.CacheNamespace) int {
	if lru, ok := c.spaces[ns]; ok {
		return lru.Len()
	}
	return 0
}

// PurgeStale drops processed-document entries written by an older pipeline
// version. Returns the number removed.
func (c *Cache) PurgeStale() int {
	lru := c.spaces[driven.CacheProcessedDocument]
	removed := 0
	for _, key := range lru.Keys() {
		value, ok := lru.Peek(key)
		if !ok {
			continue
		}
		if isCurrentVersion(value) {
			continue
		}
		if lru.Remove(key) {
			removed++
		}
	}
	return removed
}

func isCurrentVersion(value any) bool {
	switch v := value.(type) {
	case domain.ProcessedDocument:
		return v.PipelineVersion == domain.PipelineVersion
	case *domain.ProcessedDocument:
		return v != nil && v.PipelineVersion == domain.PipelineVersion
	default:
		return false
	}
}
