// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// SearchScope selects passage-level or document-level ranking.
type SearchScope int

const (
	// ScopePassages ranks chunks.
	ScopePassages SearchScope = iota
	// ScopeDocuments ranks whole documents.
	ScopeDocuments
)

// SearchCompleted carries search results back to the model. Results is
// set for ScopePassages, Documents for ScopeDocuments.
type SearchCompleted struct {
	Query     string
	Scope     SearchScope
	Results   []domain.SearchResult
	Documents []domain.RankedCandidate
	Err       error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and answer view.
	ViewChat
	// ViewDocuments lists the owner's documents.
	ViewDocuments
	// ViewDocContent shows extracted text or analysis for one document.
	ViewDocContent
	// ViewSearch is the passage search view.
	ViewSearch
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ChatStarted carries the event stream of a newly submitted question.
type ChatStarted struct {
	Question string
	Events   <-chan domain.ChatEvent
	Err      error
}

// ChatEventReceived carries one event read from Stream. Closed is set when
// the stream was closed.
type ChatEventReceived struct {
	Stream <-chan domain.ChatEvent
	Event  domain.ChatEvent
	Closed bool
}

// DocumentsLoaded carries the documents of an owner.
type DocumentsLoaded struct {
	OwnerID   string
	Documents []domain.Document
	Err       error
}

// DocumentSelected signals a document was selected.
type DocumentSelected struct {
	Document domain.Document
}

// ContentMode selects what the document content view shows.
type ContentMode int

const (
	// ContentText shows the extracted text.
	ContentText ContentMode = iota
	// ContentAnalysis shows the latest analysis.
	ContentAnalysis
)

// AnalysisRequested asks the app to show the analysis of a document.
type AnalysisRequested struct {
	Document domain.Document
}

// DocumentContentLoaded carries the extracted text of a document.
type DocumentContentLoaded struct {
	Document domain.Document
	Err      error
}

// AnalysisLoaded carries an analysis snapshot.
type AnalysisLoaded struct {
	Document domain.Document
	Snapshot domain.AnalysisSnapshot
	Err      error
}

// DocumentProcessed signals that a processing run finished.
type DocumentProcessed struct {
	DocumentID string
	Result     *driving.ProcessResult
	Err        error
}

// DocumentDeleted signals a document was removed.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}
