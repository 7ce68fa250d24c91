package postprocessors

import (
	"github.com/custodia-labs/propdocs/internal/adapters/driven/config"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/postprocessors/chunker"
	"github.com/custodia-labs/propdocs/internal/postprocessors/sections"
)

// RegisterDefaults registers the chunker and the section labeller.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("sections", buildSections)
}

// buildChunker reads chunk_size, overlap and min_length. Absent keys keep
// the chunker defaults; a zero chunk_size does too.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	vals := config.Values(cfg)
	var opts []chunker.Option
	if size := vals.Int("chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := vals["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(vals.Int("overlap")))
	}
	if _, ok := vals["min_length"]; ok {
		opts = append(opts, chunker.WithMinLength(vals.Int("min_length")))
	}
	return chunker.New(opts...), nil
}

func buildSections(map[string]any) (driven.PostProcessor, error) {
	return sections.New(nil), nil
}

// BuildPipeline builds the stages cfg names, in order.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		stage, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(stage)
	}
	return p, nil
}
