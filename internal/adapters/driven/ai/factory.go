// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docagent/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/docagent/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docagent/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/docagent/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docagent/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/logger"
)

// modelDimensions lists vector sizes of well-known local embedding models.
var modelDimensions = map[string]int{
	"all-minilm":        384,
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"bge-m3":            1024,
}

// Services holds the AI adapters built from settings.
type Services struct {
	Embedding driven.EmbeddingService

	// LLM is nil when no language model is configured.
	LLM driven.LLMService

	// Warnings lists non-fatal configuration issues.
	Warnings []string
}

// Close releases all resources held by the services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// Build creates the embedding and LLM adapters. An embedding provider is
// required; a missing LLM is reported as a warning so index commands keep
// working. No network call is made.
func Build(settings domain.AppSettings) (*Services, error) {
	embedder, err := CreateEmbeddingService(settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	out := &Services{Embedding: embedder}

	llm, err := CreateLLMService(settings.LLM)
	switch {
	case err != nil:
		out.Warnings = append(out.Warnings, fmt.Sprintf("language model unavailable: %v", err))
	case llm == nil:
		out.Warnings = append(out.Warnings, "no language model configured; ask and chat are disabled")
	default:
		out.LLM = llm
	}

	for _, w := range out.Warnings {
		logger.Debug("ai: %s", w)
	}
	return out, nil
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(dimensionsFor(settings, hashing.DefaultDimensions)), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateLLMService creates the LLM service selected by settings.
// It returns nil when the provider has no language model.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil
	case domain.AIProviderOpenAI:
		if !settings.IsConfigured() {
			return nil, errors.New("openai requires an API key")
		}
		return createOpenAILLM(settings)
	case "", domain.AIProviderHashing:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}

// dimensionsFor resolves the vector size: explicit override, then the
// known model table, then fallback.
func dimensionsFor(settings domain.EmbeddingSettings, fallback int) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if d := modelDimensions[settings.Model]; d > 0 {
		return d
	}
	return fallback
}

func createOllamaEmbedding(settings domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensionsFor(settings, ollamaembed.DefaultDimensions),
		RequestsPerSecond: settings.RequestsPerSecond,
		Concurrency:       settings.Concurrency,
		MaxRetries:        settings.MaxRetries,
	})
}

func createOpenAIEmbedding(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        settings.Dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
		Concurrency:       settings.Concurrency,
		MaxRetries:        settings.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaLLM(settings domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
