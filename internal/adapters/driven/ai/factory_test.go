package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    domain.EmbeddingSettings
		wantModel   string
		wantDims    int
		errContains string
	}{
		{
			name:      "ollama known model",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name:      "ollama unknown model falls back",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom-embed"},
			wantModel: "custom-embed",
			wantDims:  384,
		},
		{
			name:      "ollama explicit dimensions",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm", Dimensions: 512},
			wantModel: "all-minilm",
			wantDims:  512,
		},
		{
			name:      "openai",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test", Model: "text-embedding-3-small"},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
		{
			name:      "hashing",
			settings:  domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Model: "hashing-384"},
			wantModel: "hashing-384",
			wantDims:  384,
		},
		{
			name:        "openai without key",
			settings:    domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			errContains: "requires an API key",
		},
		{
			name:        "unknown provider",
			settings:    domain.EmbeddingSettings{Provider: "cohere"},
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "llama3", svc.ModelName())

	svc, err = CreateLLMService(domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", svc.ModelName())

	svc, err = CreateLLMService(domain.LLMSettings{Provider: domain.AIProviderHashing})
	require.NoError(t, err)
	assert.Nil(t, svc)

	_, err = CreateLLMService(domain.LLMSettings{Provider: domain.AIProviderOpenAI})
	assert.ErrorContains(t, err, "API key")

	_, err = CreateLLMService(domain.LLMSettings{Provider: "cohere"})
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestBuild(t *testing.T) {
	settings := domain.DefaultAppSettings()

	svcs, err := Build(settings)

	require.NoError(t, err)
	assert.NotNil(t, svcs.Embedding)
	assert.NotNil(t, svcs.LLM)
	assert.Empty(t, svcs.Warnings)
	assert.NoError(t, svcs.Close())
}

func TestBuild_MissingLLMIsWarning(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderHashing}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI}

	svcs, err := Build(settings)

	require.NoError(t, err)
	assert.Nil(t, svcs.LLM)
	require.Len(t, svcs.Warnings, 1)
	assert.Contains(t, svcs.Warnings[0], "language model unavailable")
}

func TestBuild_EmbeddingRequired(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}

	_, err := Build(settings)

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestServices_CloseEmpty(t *testing.T) {
	assert.NoError(t, (&Services{}).Close())
}
