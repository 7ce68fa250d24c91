package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// PostProcessor is one stage of chunk production. The first stage gets
// nil chunks and creates them from doc.Text; later stages rewrite or
// filter what they receive.
type PostProcessor interface {
	// Name identifies the stage in configuration and logs.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document's text into its final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
