package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedMaxAttempts = "embedding.max_attempts"
	keyEmbedRate        = "embedding.requests_per_second"
	keyEmbedBurst       = "embedding.burst"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyChunkSize        = "chunker.size"
	keyChunkOverlap     = "chunker.overlap"
	keyChunkMinLength   = "chunker.min_length"
	keyTopK             = "retrieval.top_k"
	keyMinScore         = "retrieval.min_score"
	keyHistoryTurns     = "retrieval.history_turns"
	keyEntityTTL        = "cache.entity_ttl"
	keyResponseTTL      = "cache.response_ttl"
	keyEntitySize       = "cache.entity_size"
	keyResponseSize     = "cache.response_size"
	keyDocumentSize     = "cache.document_size"
	keyDataDir          = "storage.data_dir"
	keyBlobDir          = "blob.dir"
	keySigningKey       = "blob.signing_key"
	keyServerAddr       = "server.addr"
	keyIngestConc       = "ingest.concurrency"
	keyMaxInputChars    = "analysis.max_input_chars"
	keyOCREnhance       = "ocr.enhance"
	keyOCRDPI           = "ocr.dpi"
)

// Environment variables that override stored values.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvSigningKey = "PROPDOCS_SIGNING_KEY"
	EnvDataDir    = "PROPDOCS_DATA_DIR"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Stored values fall back to defaults; secrets from the environment win over both.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			MaxAttempts:       s.getInt(keyEmbedMaxAttempts, d.Embedding.MaxAttempts),
			RequestsPerSecond: s.getFloat(keyEmbedRate, d.Embedding.RequestsPerSecond),
			Burst:             s.getInt(keyEmbedBurst, d.Embedding.Burst),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Chunker: domain.ChunkerSettings{
			Size:      s.getInt(keyChunkSize, d.Chunker.Size),
			Overlap:   s.getInt(keyChunkOverlap, d.Chunker.Overlap),
			MinLength: s.getInt(keyChunkMinLength, d.Chunker.MinLength),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyTopK, d.Retrieval.TopK),
			MinScore:        s.getFloat(keyMinScore, d.Retrieval.MinScore),
			HistoryTurns:    s.getInt(keyHistoryTurns, d.Retrieval.HistoryTurns),
			MaxHistoryTurns: d.Retrieval.MaxHistoryTurns,
		},
		Cache: domain.CacheSettings{
			EntityTTL:    s.getDuration(keyEntityTTL, d.Cache.EntityTTL),
			ResponseTTL:  s.getDuration(keyResponseTTL, d.Cache.ResponseTTL),
			EntitySize:   s.getInt(keyEntitySize, d.Cache.EntitySize),
			ResponseSize: s.getInt(keyResponseSize, d.Cache.ResponseSize),
			DocumentSize: s.getInt(keyDocumentSize, d.Cache.DocumentSize),
		},
		Analysis: domain.AnalysisSettings{
			MaxInputChars: s.getInt(keyMaxInputChars, d.Analysis.MaxInputChars),
		},
		OCR: domain.OCRSettings{
			Enhance: s.getBool(keyOCREnhance, d.OCR.Enhance),
			DPI:     s.getInt(keyOCRDPI, d.OCR.DPI),
		},
		DataDir:           s.getString(keyDataDir, d.DataDir),
		BlobDir:           s.getString(keyBlobDir, d.BlobDir),
		SigningKey:        s.configStore.GetString(keySigningKey),
		ServerAddr:        s.getString(keyServerAddr, d.ServerAddr),
		IngestConcurrency: s.getInt(keyIngestConc, d.IngestConcurrency),
	}

	s.applyEnv(settings)
	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if env := settings.Embedding.Provider.APIKeyEnv(); env != "" {
		if v := s.getenv(env); v != "" {
			settings.Embedding.APIKey = v
		}
	}
	if env := settings.LLM.Provider.APIKeyEnv(); env != "" {
		if v := s.getenv(env); v != "" {
			settings.LLM.APIKey = v
		}
	}
	if v := s.getenv(EnvSigningKey); v != "" {
		settings.SigningKey = v
	}
	if v := s.getenv(EnvDataDir); v != "" {
		settings.DataDir = v
	}
}

// Save persists application settings.
// Empty secrets are not written so that environment-provided keys never land on disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedMaxAttempts, settings.Embedding.MaxAttempts},
		{keyEmbedRate, settings.Embedding.RequestsPerSecond},
		{keyEmbedBurst, settings.Embedding.Burst},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkSize, settings.Chunker.Size},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyChunkMinLength, settings.Chunker.MinLength},
		{keyTopK, settings.Retrieval.TopK},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyHistoryTurns, settings.Retrieval.HistoryTurns},
		{keyEntityTTL, settings.Cache.EntityTTL.String()},
		{keyResponseTTL, settings.Cache.ResponseTTL.String()},
		{keyEntitySize, settings.Cache.EntitySize},
		{keyResponseSize, settings.Cache.ResponseSize},
		{keyDocumentSize, settings.Cache.DocumentSize},
		{keyDataDir, settings.DataDir},
		{keyBlobDir, settings.BlobDir},
		{keyServerAddr, settings.ServerAddr},
		{keyIngestConc, settings.IngestConcurrency},
		{keyMaxInputChars, settings.Analysis.MaxInputChars},
		{keyOCREnhance, settings.OCR.Enhance},
		{keyOCRDPI, settings.OCR.DPI},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key   string
		value string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keySigningKey, settings.SigningKey},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// Validate checks settings for values the pipeline cannot run with.
func Validate(settings *domain.AppSettings) error {
	if settings == nil {
		return domain.NewValidationError("settings", "are required")
	}
	c := settings.Chunker
	switch {
	case c.Size <= 0:
		return domain.NewValidationError("chunker.size", "must be positive")
	case c.Overlap < 0 || c.Overlap >= c.Size:
		return domain.NewValidationError("chunker.overlap", "must be in [0, chunker.size)")
	case c.MinLength < 0:
		return domain.NewValidationError("chunker.min_length", "must not be negative")
	case settings.Retrieval.TopK <= 0:
		return domain.NewValidationError("retrieval.top_k", "must be positive")
	case settings.Retrieval.MinScore < 0 || settings.Retrieval.MinScore > 1:
		return domain.NewValidationError("retrieval.min_score", "must be in [0, 1]")
	case settings.Embedding.BatchSize <= 0:
		return domain.NewValidationError("embedding.batch_size", "must be positive")
	case settings.Embedding.MaxAttempts <= 0:
		return domain.NewValidationError("embedding.max_attempts", "must be positive")
	case settings.Embedding.RequestsPerSecond < 0:
		return domain.NewValidationError("embedding.requests_per_second", "must not be negative")
	case settings.Embedding.Burst <= 0:
		return domain.NewValidationError("embedding.burst", "must be positive")
	case settings.IngestConcurrency <= 0:
		return domain.NewValidationError("ingest.concurrency", "must be positive")
	case settings.Cache.EntityTTL <= 0 || settings.Cache.ResponseTTL <= 0:
		return domain.NewValidationError("cache", "TTLs must be positive")
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	supported := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("API key required for %s (or set %s)", provider, provider.APIKeyEnv())
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(provider.APIKeyEnv()) == "" {
		return fmt.Errorf("API key required for %s (or set %s)", provider, provider.APIKeyEnv())
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

func modelOrDefault(model, def string) string {
	if model != "" {
		return model
	}
	return def
}

// baseURLFor keeps a custom Ollama endpoint and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts Go duration strings ("30m") or a bare number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if str := s.configStore.GetString(key); str != "" {
		d, err := time.ParseDuration(str)
		if err != nil || d <= 0 {
			return defaultVal
		}
		return d
	}
	if secs := s.configStore.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
