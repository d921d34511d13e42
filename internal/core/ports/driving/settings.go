package driving

import "github.com/custodia-labs/docagent/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Set validates and stores a single setting by key.
	Set(key, value string) error

	// Values returns every known key with its effective value.
	// Secrets are masked.
	Values() ([]SettingValue, error)

	// SetAPIKey stores the API key for a provider.
	SetAPIKey(provider domain.AIProvider, key string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}

// SettingValue is a key with its effective value.
type SettingValue struct {
	Key   string
	Value string

	// Default reports whether the value comes from defaults.
	Default bool
}
