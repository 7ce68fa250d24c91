// Package tui provides an interactive terminal user interface for propdocs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search ranks passages of an owner's documents.
	Search driving.SearchService

	// Documents lists, processes and deletes documents.
	Documents driving.DocumentService

	// Analysis runs and reads deep document analysis. Optional.
	Analysis driving.AnalysisService

	// Chat streams grounded answers.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
