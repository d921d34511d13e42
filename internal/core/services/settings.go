package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyIndexPath        = "index.path"
	KeyIndexCompression = "index.compression"
	KeyIndexRebuild     = "index.rebuild"
	KeyIndexDefaultDim  = "index.default_dimension"
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyEmbedRPS         = "embedding.requests_per_second"
	KeyEmbedConcurrency = "embedding.concurrency"
	KeyEmbedMaxRetries  = "embedding.max_retries"
	KeyLLMProvider      = "llm.provider"
	KeyLLMModel         = "llm.model"
	KeyLLMBaseURL       = "llm.base_url"
	KeyIngestChunkSize  = "ingest.chunk_size"
	KeyIngestOverlap    = "ingest.chunk_overlap"
	KeyAnswerTopK       = "answer.top_k"
	KeyOpenAIAPIKey     = "openai.api_key"
)

// EnvOpenAIAPIKey is consulted when no key is stored.
//
//nolint:gosec // G101: environment variable name.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// settingKinds lists every settable key with its value kind.
var settingKinds = map[string]string{
	KeyIndexPath:        "string",
	KeyIndexCompression: "compression",
	KeyIndexRebuild:     "rebuild",
	KeyIndexDefaultDim:  "int",
	KeyEmbedProvider:    "embedding_provider",
	KeyEmbedModel:       "string",
	KeyEmbedBaseURL:     "string",
	KeyEmbedDimensions:  "int",
	KeyEmbedRPS:         "float",
	KeyEmbedConcurrency: "int",
	KeyEmbedMaxRetries:  "int",
	KeyLLMProvider:      "llm_provider",
	KeyLLMModel:         "string",
	KeyLLMBaseURL:       "string",
	KeyIngestChunkSize:  "int",
	KeyIngestOverlap:    "int",
	KeyAnswerTopK:       "int",
	KeyOpenAIAPIKey:     "secret",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. dataDir is where the
// index lives when index.path is unset.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()
	apiKey := s.apiKey()

	settings := &domain.AppSettings{
		Index: domain.IndexSettings{
			Path:             s.getString(KeyIndexPath, defaults.Index.Path),
			Compression:      s.getCompression(defaults.Index.Compression),
			Rebuild:          s.getRebuild(defaults.Index.Rebuild),
			DefaultDimension: s.getInt(KeyIndexDefaultDim, defaults.Index.DefaultDimension),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(KeyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL), // No default - adapters know theirs
			Dimensions:        s.configStore.GetInt(KeyEmbedDimensions),
			RequestsPerSecond: s.getFloat(KeyEmbedRPS, defaults.Embedding.RequestsPerSecond),
			Concurrency:       s.getInt(KeyEmbedConcurrency, defaults.Embedding.Concurrency),
			MaxRetries:        s.getInt(KeyEmbedMaxRetries, defaults.Embedding.MaxRetries),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(KeyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.configStore.GetString(KeyLLMBaseURL),
		},
		Ingest: domain.IngestSettings{
			ChunkSize:    s.getInt(KeyIngestChunkSize, defaults.Ingest.ChunkSize),
			ChunkOverlap: s.getInt(KeyIngestOverlap, defaults.Ingest.ChunkOverlap),
		},
		Answer: domain.AnswerSettings{
			TopK: s.getInt(KeyAnswerTopK, defaults.Answer.TopK),
		},
	}

	// Models default per provider, not globally.
	settings.Embedding.Model = s.getString(KeyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(KeyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.Embedding.Provider.RequiresAPIKey() {
		settings.Embedding.APIKey = apiKey
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		settings.LLM.APIKey = apiKey
	}

	return settings, nil
}

// Set validates and stores a single setting.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	// An empty value restores the default.
	if value == "" {
		return s.configStore.Delete(key)
	}

	var stored any = value
	switch kind {
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = int64(n)
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		stored = f
	case "compression":
		if !domain.Compression(value).IsValid() {
			return fmt.Errorf("%w: invalid compression %q (none, lz4, zstd)", domain.ErrInvalidInput, value)
		}
	case "rebuild":
		if !domain.RebuildStrategy(value).IsValid() {
			return fmt.Errorf("%w: invalid rebuild strategy %q (reembed, reuse)", domain.ErrInvalidInput, value)
		}
	case "embedding_provider":
		if !supports(domain.AllEmbeddingProviders(), domain.AIProvider(value)) {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, value)
		}
	case "llm_provider":
		if !supports(domain.AllLLMProviders(), domain.AIProvider(value)) {
			return fmt.Errorf("%w: provider %s does not support answers", domain.ErrInvalidInput, value)
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetAPIKey stores the API key for a provider.
func (s *SettingsService) SetAPIKey(provider domain.AIProvider, key string) error {
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: provider %s does not use an API key", domain.ErrInvalidInput, provider)
	}
	if key == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if err := s.configStore.Set(KeyOpenAIAPIKey, key); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

// Values returns every known key with its effective value.
func (s *SettingsService) Values() ([]driving.SettingValue, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	effective := map[string]string{
		KeyIndexPath:        settings.Index.Path,
		KeyIndexCompression: string(settings.Index.Compression),
		KeyIndexRebuild:     string(settings.Index.Rebuild),
		KeyIndexDefaultDim:  strconv.Itoa(settings.Index.DefaultDimension),
		KeyEmbedProvider:    settings.Embedding.Provider.String(),
		KeyEmbedModel:       settings.Embedding.Model,
		KeyEmbedBaseURL:     settings.Embedding.BaseURL,
		KeyEmbedDimensions:  strconv.Itoa(settings.Embedding.Dimensions),
		KeyEmbedRPS:         strconv.FormatFloat(settings.Embedding.RequestsPerSecond, 'g', -1, 64),
		KeyEmbedConcurrency: strconv.Itoa(settings.Embedding.Concurrency),
		KeyEmbedMaxRetries:  strconv.Itoa(settings.Embedding.MaxRetries),
		KeyLLMProvider:      settings.LLM.Provider.String(),
		KeyLLMModel:         settings.LLM.Model,
		KeyLLMBaseURL:       settings.LLM.BaseURL,
		KeyIngestChunkSize:  strconv.Itoa(settings.Ingest.ChunkSize),
		KeyIngestOverlap:    strconv.Itoa(settings.Ingest.ChunkOverlap),
		KeyAnswerTopK:       strconv.Itoa(settings.Answer.TopK),
		KeyOpenAIAPIKey:     maskSecret(s.apiKey()),
	}

	keys := make([]string, 0, len(effective))
	for k := range effective {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]driving.SettingValue, 0, len(keys))
	for _, k := range keys {
		_, stored := s.configStore.Get(k)
		values = append(values, driving.SettingValue{
			Key:     k,
			Value:   effective[k],
			Default: !stored,
		})
	}
	return values, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	if s.dataDir != "" {
		defaults.Index.Path = filepath.Join(s.dataDir, "index")
	}
	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) apiKey() string {
	if key := s.configStore.GetString(KeyOpenAIAPIKey); key != "" {
		return key
	}
	return s.getenv(EnvOpenAIAPIKey)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCompression(defaultVal domain.Compression) domain.Compression {
	c := domain.Compression(s.configStore.GetString(KeyIndexCompression))
	if !c.IsValid() {
		return defaultVal
	}
	return c
}

func (s *SettingsService) getRebuild(defaultVal domain.RebuildStrategy) domain.RebuildStrategy {
	r := domain.RebuildStrategy(s.configStore.GetString(KeyIndexRebuild))
	if !r.IsValid() {
		return defaultVal
	}
	return r
}

func supports(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}

// maskSecret keeps the last four characters.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
