package sections

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Processor assigns a section label to every chunk.
// It implements the PostProcessor interface and runs after the chunker.
type Processor struct {
	classifier driven.SectionClassifier
}

// New creates a section processor. A nil classifier uses the keyword table.
func New(classifier driven.SectionClassifier) *Processor {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Processor{classifier: classifier}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sections"
}

// Process labels the chunks in place and returns them.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Section = p.classifier.Classify(chunks[i].Content, doc.Type)
	}
	return chunks, nil
}
