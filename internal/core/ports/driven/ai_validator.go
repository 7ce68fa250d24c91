package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// AIConfigValidator checks provider settings by connecting to them. An
// unconfigured provider is not an error.
type AIConfigValidator interface {
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error
}
