package memory

import (
	"sync"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/config"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds settings in memory only. Save and Load do nothing.
type ConfigStore struct {
	mu     sync.RWMutex
	values config.Values
}

// NewConfigStore creates an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: config.Values{}}
}

// NewConfigStoreFrom creates a store preloaded with nested tables, as a
// decoded config.toml would hold them.
func NewConfigStoreFrom(tables map[string]any) *ConfigStore {
	return &ConfigStore{values: config.Flatten(tables)}
}

func (s *ConfigStore) read(fn func(config.Values)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.values)
}

// Get returns the raw value at key.
func (s *ConfigStore) Get(key string) (v any, ok bool) {
	s.read(func(vals config.Values) { v, ok = vals[key] })
	return v, ok
}

// GetString returns the string at key, or "".
func (s *ConfigStore) GetString(key string) (out string) {
	s.read(func(vals config.Values) { out = vals.String(key) })
	return out
}

// GetInt returns the integer at key, or 0.
func (s *ConfigStore) GetInt(key string) (out int) {
	s.read(func(vals config.Values) { out = vals.Int(key) })
	return out
}

// GetFloat returns the number at key, or 0.
func (s *ConfigStore) GetFloat(key string) (out float64) {
	s.read(func(vals config.Values) { out = vals.Float(key) })
	return out
}

// GetBool returns the boolean at key, or false.
func (s *ConfigStore) GetBool(key string) (out bool) {
	s.read(func(vals config.Values) { out = vals.Bool(key) })
	return out
}

// GetStringSlice returns the string array at key, or nil.
func (s *ConfigStore) GetStringSlice(key string) (out []string) {
	s.read(func(vals config.Values) { out = vals.Strings(key) })
	return out
}

// Set stores value at key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save does nothing.
func (s *ConfigStore) Save() error { return nil }

// Load does nothing.
func (s *ConfigStore) Load() error { return nil }

// Path reports that nothing is on disk.
func (s *ConfigStore) Path() string { return ":memory:" }
