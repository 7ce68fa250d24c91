package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// APIKeyEnv returns the environment variable consulted for the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// BatchSize bounds how many texts go into one provider request.
	BatchSize int

	// MaxAttempts bounds retries of a transient batch failure.
	MaxAttempts int

	// RequestsPerSecond paces provider requests across all workers.
	// Zero disables pacing.
	RequestsPerSecond float64

	// Burst is how many requests may go out back to back.
	Burst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings configures text splitting.
type ChunkerSettings struct {
	// Size is the target chunk size in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// MinLength discards chunks shorter than this after trimming.
	MinLength int
}

// RetrievalSettings configures ranking and prompt assembly.
type RetrievalSettings struct {
	// TopK is how many chunks go into a chat prompt. Clamped to [4, 8].
	TopK int

	// MinScore is the composite score below which candidates are dropped.
	MinScore float64

	// HistoryTurns is how many recent conversation turns are kept.
	HistoryTurns int

	// MaxHistoryTurns rejects requests carrying more history than this.
	MaxHistoryTurns int
}

// CacheSettings configures the three cache namespaces.
type CacheSettings struct {
	EntityTTL    time.Duration
	ResponseTTL  time.Duration
	EntitySize   int
	ResponseSize int
	DocumentSize int
}

// AnalysisSettings configures deep analysis.
type AnalysisSettings struct {
	// MaxInputChars truncates document text sent to the generation provider.
	MaxInputChars int
}

// OCRSettings configures the OCR fallback.
type OCRSettings struct {
	// Enhance toggles image enhancement before OCR.
	Enhance bool

	// DPI is the page render resolution.
	DPI int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Cache     CacheSettings
	Analysis  AnalysisSettings
	OCR       OCRSettings

	// DataDir holds the sqlite database and blobs.
	DataDir string

	// BlobDir overrides the blob directory. Defaults to DataDir/blobs.
	BlobDir string

	// SigningKey signs time-limited blob URLs.
	SigningKey string

	// ServerAddr is the HTTP listen address.
	ServerAddr string

	// IngestConcurrency bounds per-owner document fan-out.
	IngestConcurrency int
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; users configure them via settings or env.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			BatchSize:         100,
			MaxAttempts:       5,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		LLM: LLMSettings{},
		Chunker: ChunkerSettings{
			Size:      1000,
			Overlap:   200,
			MinLength: 50,
		},
		Retrieval: RetrievalSettings{
			TopK:            6,
			MinScore:        0.12,
			HistoryTurns:    6,
			MaxHistoryTurns: 50,
		},
		Cache: CacheSettings{
			EntityTTL:    30 * time.Minute,
			ResponseTTL:  10 * time.Minute,
			EntitySize:   512,
			ResponseSize: 2048,
			DocumentSize: 4096,
		},
		Analysis: AnalysisSettings{
			MaxInputChars: 60000,
		},
		OCR: OCRSettings{
			Enhance: true,
			DPI:     300,
		},
		ServerAddr:        ":8080",
		IngestConcurrency: 5,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor derives the chunking pipeline from chunker settings.
func PipelineConfigFor(c ChunkerSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "sections"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
				"min_length": c.MinLength,
			},
		},
	}
}
