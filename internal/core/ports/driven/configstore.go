package driven

// ConfigStore holds flat dotted settings such as "llm.provider" or
// "index.dimension". Getters return the zero value for a missing key or a
// value of the wrong type, so callers fall back to their own defaults.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt accepts any numeric value; floats are truncated.
	GetInt(key string) int

	// GetFloat accepts any numeric value.
	GetFloat(key string) float64

	// Set and Delete persist before returning.
	Set(key string, value any) error
	Delete(key string) error

	// Keys is sorted.
	Keys() []string

	Save() error
	Load() error

	// Path is the backing file, or a placeholder for stores without one.
	Path() string
}
