package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// pingTimeout is the maximum time to wait for a provider to answer.
const pingTimeout = 5 * time.Second

// ConfigValidator checks that configured providers are reachable.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator using the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding builds the embedding adapter and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLM builds the LLM adapter and pings it. A provider without a
// language model yields domain.ErrLLMUnavailable.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return domain.ErrLLMUnavailable
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}
