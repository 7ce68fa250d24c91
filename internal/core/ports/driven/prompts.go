package driven

import "github.com/custodia-labs/propdocs/internal/core/domain"

// PromptStore serves named prompt templates.
type PromptStore interface {
	// Load returns the template called name, or an error when neither a
	// stored nor a built-in template exists.
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// Prompt names.
const (
	// PromptChatSystem instructs the chat model. No placeholders.
	PromptChatSystem = "chat_system"

	// PromptAnalysisSystem instructs the analysis model. No placeholders.
	PromptAnalysisSystem = "analysis_system"

	// PromptAnalysisPrefix starts every per-type analysis template. Those
	// take two %s verbs: the document title, then its text.
	PromptAnalysisPrefix = "analysis_"
)

// AnalysisPromptName names the analysis template for docType.
func AnalysisPromptName(docType domain.DocumentType) string {
	return PromptAnalysisPrefix + docType.Slug()
}

// PromptStoreAware is implemented by services whose prompts can be
// replaced after construction. Without a store they use built-ins.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
