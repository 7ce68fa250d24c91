// Command propdocs is the composition root: it wires the driven adapters
// into the core services and hands them to the CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/ai"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/blob/filesystem"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/ocr"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/propdocs/internal/adapters/driving/cli"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/services"
	"github.com/custodia-labs/propdocs/internal/extractors"
	"github.com/custodia-labs/propdocs/internal/extractors/command"
	"github.com/custodia-labs/propdocs/internal/logger"
	"github.com/custodia-labs/propdocs/internal/postprocessors"
)

// version is overridden with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cleanup, err := wire(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = cli.Execute(ctx)
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// wire builds every service and registers them with the CLI. The returned
// func releases the database and provider clients.
func wire(ctx context.Context) (func(), error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := services.Validate(settings); err != nil {
		logger.Warn("config: %v", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blobDir := settings.BlobDir
	if blobDir == "" {
		blobDir = filepath.Join(filepath.Dir(store.Path()), "blobs")
	}
	signingKey := settings.SigningKey
	if signingKey == "" {
		// Signed URLs stop verifying after a restart.
		signingKey = uuid.NewString()
		logger.Warn("no signing key configured; document URLs are valid for this process only")
	}
	blobs, err := filesystem.New(blobDir, signingKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	cache := memory.NewFromSettings(settings.Cache)

	providers := ai.Init(ctx, *settings)

	prompts, err := file.NewPromptStore("")
	if err != nil {
		logger.Warn("prompt store unavailable, using built-in prompts: %v", err)
	}

	runner := command.ExecRunner{}
	registry := extractors.NewRegistry()
	extractors.RegisterDefaults(registry, runner)

	var extractorOpts []services.TextExtractorOption
	if settings.OCR.Enhance {
		extractorOpts = append(extractorOpts, services.WithImageEnhancer(ocr.NewEnhancer()))
	}
	extractor := services.NewTextExtractor(
		registry,
		ocr.NewRenderer(runner, settings.OCR.DPI),
		ocr.NewTesseract(runner, ""),
		extractorOpts...,
	)

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, domain.PipelineConfigFor(settings.Chunker))
	if err != nil {
		providers.Close()
		store.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	var embedder *services.EmbeddingClient
	if providers.EmbeddingService != nil {
		embedder = services.NewEmbeddingClient(
			providers.EmbeddingService,
			services.WithBatchSize(settings.Embedding.BatchSize),
			services.WithMaxAttempts(settings.Embedding.MaxAttempts),
			services.WithRequestsPerSecond(settings.Embedding.RequestsPerSecond, settings.Embedding.Burst),
		)
	}

	vectors := store.VectorIndex()
	documents := services.NewDocumentService(services.DocumentServiceDeps{
		Documents:   store.DocumentStore(),
		Analyses:    store.AnalysisStore(),
		Blobs:       blobs,
		Vectors:     vectors,
		Extractor:   extractor,
		Pipeline:    pipeline,
		Embedder:    embedder,
		Cache:       cache,
		Concurrency: settings.IngestConcurrency,
	})

	search := services.NewSearchService(
		store.DocumentStore(),
		vectors,
		embedder,
		services.NewRelevanceRanker(settings.Retrieval.MinScore),
	)

	analysis := services.NewAnalysisService(
		store.DocumentStore(),
		store.AnalysisStore(),
		blobs,
		extractor,
		providers.LLMService,
		settings.Analysis.MaxInputChars,
	)

	entities := services.NewEntityContextService(store.EntityStore(), cache)

	chat := services.NewChatOrchestrator(search, entities, providers.LLMService, cache, settings.Retrieval)

	if prompts != nil {
		analysis.SetPromptStore(prompts)
		chat.SetPromptStore(prompts)
	}

	schedulerConfig := domain.DefaultSchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), documents, cache)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Search:          search,
		Documents:       documents,
		Analysis:        analysis,
		Chat:            chat,
		Entities:        entities,
		Settings:        settingsService,
		Blobs:           blobs,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
	})

	return func() {
		providers.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing database: %v", err)
		}
	}, nil
}
