package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// SettingsService reads and changes the persisted configuration.
type SettingsService interface {
	// Get returns the stored settings with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save rejects invalid settings and writes the rest.
	Save(settings *domain.AppSettings) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured
	// provider.
	ValidateEmbeddingConfig(ctx context.Context) error
	ValidateLLMConfig(ctx context.Context) error
}
