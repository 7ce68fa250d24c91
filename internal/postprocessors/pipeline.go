// Package postprocessors turns extracted document text into labelled
// chunks through an ordered chain of processors.
package postprocessors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// ErrNilDocument is returned by Process for a nil document.
var ErrNilDocument = errors.New("postprocessors: nil document")

// Pipeline runs processors in order. The first stage receives nil chunks
// and creates them; later stages relabel or filter.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline of the given stages.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process runs doc through every stage. Cancellation is checked between
// stages.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("pipeline: %s on %s: %d -> %d chunks in %s",
			stage.Name(), doc.ID, len(chunks), len(out), time.Since(start).Round(time.Microsecond))
		chunks = out
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
