// Package driven declares what the core needs from the outside world:
// storage, models, OCR, caching and configuration. Adapters under
// internal/adapters/driven implement these interfaces; this package
// imports nothing but domain.
//
// The stores (DocumentStore, AnalysisStore, EntityStore, SchedulerStore),
// BlobStore, ExtractorRegistry, VectorIndex, Cache, ConfigStore and
// PromptStore must be wired. The rest may be nil:
//
//   - EmbeddingService: ranking falls back to keywords.
//   - LLMService: analysis and chat report themselves unavailable.
//   - PageRenderer and OCREngine: scanned pages yield no text.
//   - ImageEnhancer: pages are recognised as rendered.
package driven
