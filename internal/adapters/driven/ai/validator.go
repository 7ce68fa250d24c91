package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks candidate provider settings before they are saved
// by building a throwaway client and pinging it.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator that gives each provider
// pingTimeout to answer.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// WithTimeout overrides how long a provider has to answer.
func (v *ConfigValidator) WithTimeout(d time.Duration) *ConfigValidator {
	if d > 0 {
		v.timeout = d
	}
	return v
}

// ValidateEmbedding accepts unconfigured settings; configured ones must
// answer a ping.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	if err := v.ping(ctx, svc.Ping); err != nil {
		return fmt.Errorf("%s embedding: %w", settings.Provider, err)
	}
	return nil
}

// ValidateLLM is ValidateEmbedding for the chat model.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	if err := v.ping(ctx, svc.Ping); err != nil {
		return fmt.Errorf("%s llm: %w", settings.Provider, err)
	}
	return nil
}

func (v *ConfigValidator) ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return fn(ctx)
}
