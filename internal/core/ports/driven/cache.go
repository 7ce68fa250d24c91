package driven

// CacheNamespace partitions the cache. Invalidating one namespace never
// touches another.
type CacheNamespace string

// Cache namespaces.
const (
	CacheEntityContext     CacheNamespace = "entity"
	CacheProcessedDocument CacheNamespace = "document"
	CacheQueryResponse     CacheNamespace = "response"
)

// Cache is the process cache layer. Writes are last-writer-wins.
// A stored nil is a hit; callers must check the presence flag.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ns CacheNamespace, key string) (any, bool)

	// Put stores value under key with the namespace's TTL.
	Put(ns CacheNamespace, key string, value any)

	// Invalidate removes key, or every key with the prefix when it ends in "*".
	// Returns the number of entries removed.
	Invalidate(ns CacheNamespace, keyOrPrefix string) int

	// Len returns the number of live entries in a namespace.
	Len(ns CacheNamespace) int
}
