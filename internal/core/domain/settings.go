package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashing is the offline feature-hashing embedder.
	// It only provides embeddings.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// Compression selects the codec for the persisted vector blob.
type Compression string

// Available compression codecs.
const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// IsValid returns true if the codec is recognised.
func (c Compression) IsValid() bool {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return true
	default:
		return false
	}
}

// RebuildStrategy selects how survivors are re-indexed after a delete.
type RebuildStrategy string

// Available rebuild strategies.
const (
	// RebuildReembed re-submits every surviving text to the embedding provider.
	RebuildReembed RebuildStrategy = "reembed"

	// RebuildReuse copies surviving vectors out of the old index.
	RebuildReuse RebuildStrategy = "reuse"
)

// IsValid returns true if the strategy is recognised.
func (r RebuildStrategy) IsValid() bool {
	return r == RebuildReembed || r == RebuildReuse
}

// IndexSettings holds index storage configuration.
type IndexSettings struct {
	// Path is the index directory.
	Path string

	// Compression is the vector blob codec.
	Compression Compression

	// Rebuild is the delete rebuild strategy.
	Rebuild RebuildStrategy

	// DefaultDimension is used when an empty index has no prior dimension.
	DefaultDimension int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's vector size.
	Dimensions int

	// RequestsPerSecond throttles provider calls.
	RequestsPerSecond float64

	// Concurrency bounds parallel requests within one batch.
	Concurrency int

	// MaxRetries bounds retries of transient failures.
	MaxRetries int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider != AIProviderOllama && l.Provider != AIProviderOpenAI {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IngestSettings holds page chunking configuration.
type IngestSettings struct {
	// ChunkSize is the window size in runes; 0 keeps one chunk per page.
	ChunkSize int

	// ChunkOverlap is the overlap between windows in runes.
	ChunkOverlap int
}

// AnswerSettings holds retrieval configuration.
type AnswerSettings struct {
	// TopK is the number of records handed to the LLM.
	TopK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Index     IndexSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Ingest    IngestSettings
	Answer    AnswerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The index path is left empty; callers resolve it under the config directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Index: IndexSettings{
			Compression:      CompressionZstd,
			Rebuild:          RebuildReembed,
			DefaultDimension: DefaultDimension,
		},
		Embedding: EmbeddingSettings{
			Provider:          AIProviderOllama,
			Model:             "all-minilm",
			RequestsPerSecond: 10,
			Concurrency:       4,
			MaxRetries:        3,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "mistral",
		},
		Ingest: IngestSettings{
			ChunkSize:    0,
			ChunkOverlap: 100,
		},
		Answer: AnswerSettings{
			TopK: 4,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashing,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-384",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "mistral",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
