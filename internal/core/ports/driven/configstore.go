package driven

// ConfigStore is the key/value view of config.toml. Keys are dotted
// paths into its tables, such as "retrieval.top_k". Typed getters return
// the zero value when a key is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt also accepts int64 and float64 values, truncating floats.
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value and writes the file.
	Set(key string, value any) error

	Save() error

	// Load discards in-memory values and rereads the file.
	Load() error

	// Path locates the backing file.
	Path() string
}
