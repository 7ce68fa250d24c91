package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// DefaultAnalysisMaxInputChars bounds the document text sent for analysis.
const DefaultAnalysisMaxInputChars = 60000

// Fallback prompts used when no PromptStore is configured.
const (
	fallbackAnalysisSystem = "You are a real estate document analyst. Write a clear, factual analysis for a home buyer."
	fallbackAnalysisPrompt = "Analyse the document %q below. Summarise key findings, risks, costs and recommended actions.\n\n%s"
)

// documentExtractor is the TextExtractor contract used by the services.
type documentExtractor interface {
	Extract(ctx context.Context, documentID string, blob *domain.Blob, progress domain.ProgressFunc) (*domain.ExtractionResult, error)
}

// AnalysisService drives the per-document analysis state machine:
// queued -> extracting -> analyzing -> saving -> completed, or failed.
// Runs for the same document are serialised.
type AnalysisService struct {
	docs      driven.DocumentStore
	analyses  driven.AnalysisStore
	blobs     driven.BlobStore
	extractor documentExtractor
	llm       driven.LLMService
	prompts   driven.PromptStore
	maxInput  int
	locks     *keyedMutex
	now       func() time.Time
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(
	docs driven.DocumentStore,
	analyses driven.AnalysisStore,
	blobs driven.BlobStore,
	extractor documentExtractor,
	llm driven.LLMService,
	maxInputChars int,
) *AnalysisService {
	if maxInputChars <= 0 {
		maxInputChars = DefaultAnalysisMaxInputChars
	}
	return &AnalysisService{
		docs:      docs,
		analyses:  analyses,
		blobs:     blobs,
		extractor: extractor,
		llm:       llm,
		maxInput:  maxInputChars,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// SetPromptStore sets the store for the analysis prompts.
func (s *AnalysisService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// StartOrRefresh returns the completed analysis when one exists and
// forceRefresh is false; otherwise it runs analysis to a terminal state and
// returns that snapshot. Pipeline failures are reported in the snapshot.
func (s *AnalysisService) StartOrRefresh(ctx context.Context, documentID string, forceRefresh bool) (domain.AnalysisSnapshot, error) {
	doc, err := s.lookup(ctx, documentID)
	if err != nil {
		return domain.AnalysisSnapshot{}, err
	}
	if doc.Type == domain.DocumentTypeOther {
		return domain.UnsupportedSnapshot(documentID, doc.Type), nil
	}

	unlock := s.locks.Lock(documentID)
	defer unlock()

	record, cached, err := s.prepare(ctx, documentID, forceRefresh)
	if err != nil || cached {
		return record.Snapshot(), err
	}
	return s.run(ctx, doc, record), nil
}

// Enqueue starts analysis in the background and returns the queued
// snapshot. When a run for the document is already in flight its current
// snapshot is returned and no second run starts.
func (s *AnalysisService) Enqueue(ctx context.Context, documentID string, forceRefresh bool) (domain.AnalysisSnapshot, error) {
	doc, err := s.lookup(ctx, documentID)
	if err != nil {
		return domain.AnalysisSnapshot{}, err
	}
	if doc.Type == domain.DocumentTypeOther {
		return domain.UnsupportedSnapshot(documentID, doc.Type), nil
	}

	unlock, ok := s.locks.TryLock(documentID)
	if !ok {
		logger.Debug("Analysis for %s already running", documentID)
		return s.Status(ctx, documentID)
	}

	record, cached, err := s.prepare(ctx, documentID, forceRefresh)
	if err != nil || cached {
		unlock()
		return record.Snapshot(), err
	}

	queued := record.Snapshot()
	bg := context.WithoutCancel(ctx)
	go func() {
		defer unlock()
		s.run(bg, doc, record)
	}()
	return queued, nil
}

// Status returns the current snapshot. Documents never analysed report a
// queued snapshot at zero progress.
func (s *AnalysisService) Status(ctx context.Context, documentID string) (domain.AnalysisSnapshot, error) {
	doc, err := s.lookup(ctx, documentID)
	if err != nil {
		return domain.AnalysisSnapshot{}, err
	}
	if doc.Type == domain.DocumentTypeOther {
		return domain.UnsupportedSnapshot(documentID, doc.Type), nil
	}

	record, err := s.analyses.GetAnalysis(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		snap := domain.NewAnalysisRecord(documentID, s.now()).Snapshot()
		snap.Message = "Not analysed yet"
		return snap, nil
	}
	if err != nil {
		return domain.AnalysisSnapshot{}, err
	}
	return record.Snapshot(), nil
}

func (s *AnalysisService) lookup(ctx context.Context, documentID string) (*domain.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.NewValidationError("documentId", "is required")
	}
	return s.docs.GetDocument(ctx, documentID)
}

// prepare loads the record under the document lock. It reports cached=true
// when a completed result can be returned as-is; otherwise the record is
// created or reset to queued and saved.
func (s *AnalysisService) prepare(ctx context.Context, documentID string, forceRefresh bool) (*domain.AnalysisRecord, bool, error) {
	now := s.now()
	record, err := s.analyses.GetAnalysis(ctx, documentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		record = domain.NewAnalysisRecord(documentID, now)
	case err != nil:
		return &domain.AnalysisRecord{DocumentID: documentID}, false, err
	case record.HasResult() && !forceRefresh:
		logger.Debug("Analysis cache hit for %s", documentID)
		return record, true, nil
	default:
		record.Reset(now)
	}

	if err := s.analyses.SaveAnalysis(ctx, record); err != nil {
		return record, false, err
	}
	return record, false, nil
}

// run drives a queued record to completed or failed and returns the final snapshot.
func (s *AnalysisService) run(ctx context.Context, doc *domain.Document, record *domain.AnalysisRecord) domain.AnalysisSnapshot {
	logger.Section("Analysis")
	logger.Debug("Analysing %s (%s)", doc.ID, doc.Type)

	stage := string(domain.StatusExtracting)
	err := s.drive(ctx, doc, record, &stage)
	if err != nil {
		err = &domain.StageError{DocumentID: doc.ID, Stage: stage, Err: err}
		logger.Warn("Analysis failed: %v", err)
		record.Fail(err.Error(), s.now())
		// The record must not be left in a transient state, even if the
		// caller's context is gone.
		if saveErr := s.analyses.SaveAnalysis(context.WithoutCancel(ctx), record); saveErr != nil {
			logger.Error("Saving failed analysis for %s: %v", doc.ID, saveErr)
		}
	}
	return record.Snapshot()
}

func (s *AnalysisService) drive(ctx context.Context, doc *domain.Document, record *domain.AnalysisRecord, stage *string) error {
	if s.llm == nil {
		return domain.ErrLLMUnavailable
	}

	if err := s.step(ctx, record, domain.StatusExtracting, domain.ProgressQueued, "Preparing document text"); err != nil {
		return err
	}
	if !doc.HasText() {
		if err := s.extractText(ctx, doc, record); err != nil {
			return err
		}
	}

	*stage = string(domain.StatusAnalyzing)
	if err := s.step(ctx, record, domain.StatusAnalyzing, domain.ProgressAnalyzing, "Analyzing document"); err != nil {
		return err
	}
	system, prompt, err := s.buildPrompt(doc)
	if err != nil {
		return err
	}
	gen, err := s.llm.Generate(ctx, driven.GenerationRequest{
		System:      system,
		Messages:    []driven.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return err
	}
	record.Advance(domain.ProgressAnalyzed, "Analysis generated", s.now())

	*stage = string(domain.StatusSaving)
	if err := s.step(ctx, record, domain.StatusSaving, domain.ProgressSaving, "Saving results"); err != nil {
		return err
	}
	if err := record.Complete(strings.TrimSpace(gen.Text), gen.Usage, s.now()); err != nil {
		return err
	}
	if err := s.analyses.SaveAnalysis(ctx, record); err != nil {
		return err
	}

	// Only the link is written; ingestion may have updated the document
	// since it was loaded.
	if err := s.docs.SetAnalysisID(ctx, doc.ID, record.DocumentID, s.now()); err != nil {
		logger.Warn("Linking analysis to document %s: %v", doc.ID, err)
	}
	logger.Debug("Analysis complete for %s: %d in / %d out tokens", doc.ID, gen.Usage.InputTokens, gen.Usage.OutputTokens)
	return nil
}

// step transitions the record, advances progress and persists it.
func (s *AnalysisService) step(ctx context.Context, record *domain.AnalysisRecord, next domain.AnalysisStatus, pct int, msg string) error {
	now := s.now()
	if err := record.Transition(next, now); err != nil {
		return err
	}
	record.Advance(pct, msg, now)
	return s.analyses.SaveAnalysis(ctx, record)
}

// extractText fetches the blob and runs the TextExtractor, mirroring its
// progress milestones onto the record. Only the text columns of the stored
// document are written.
func (s *AnalysisService) extractText(ctx context.Context, doc *domain.Document, record *domain.AnalysisRecord) error {
	if s.blobs == nil || s.extractor == nil {
		return fmt.Errorf("%w: no extractor configured", domain.ErrExtractionFailed)
	}

	content, err := s.blobs.Fetch(ctx, doc.BlobKey)
	if err != nil {
		return fmt.Errorf("fetch blob: %w", err)
	}
	record.Advance(domain.ProgressFetched, "Document fetched", s.now())
	if err := s.analyses.SaveAnalysis(ctx, record); err != nil {
		return err
	}

	progress := func(pct int, msg string) {
		record.Advance(pct, msg, s.now())
		if err := s.analyses.SaveAnalysis(ctx, record); err != nil {
			logger.Debug("Saving progress for %s: %v", doc.ID, err)
		}
	}
	blob := &domain.Blob{Filename: doc.Filename, MIMEType: doc.MIMEType, Content: content}
	result, err := s.extractor.Extract(ctx, doc.ID, blob, progress)
	if err != nil {
		return err
	}

	update := domain.TextUpdate{
		Text:      result.Text,
		Method:    result.Method,
		PageCount: result.PageCount,
		UpdatedAt: s.now(),
	}
	update.Apply(doc)
	return s.docs.UpdateText(ctx, doc.ID, update)
}

// buildPrompt renders the type-specific analysis prompt over the document
// text, truncated to the configured input budget.
func (s *AnalysisService) buildPrompt(doc *domain.Document) (string, string, error) {
	system, template := fallbackAnalysisSystem, fallbackAnalysisPrompt
	if s.prompts != nil {
		if p, err := s.prompts.Load(driven.PromptAnalysisSystem); err == nil {
			system = p
		}
		p, err := s.prompts.Load(driven.AnalysisPromptName(doc.Type))
		if err != nil {
			return "", "", fmt.Errorf("load analysis prompt: %w", err)
		}
		template = p
	}

	text := doc.Text
	if len(text) > s.maxInput {
		text = domain.Truncate(text, s.maxInput)
	}
	return system, fmt.Sprintf(template, doc.DisplayTitle(), text), nil
}
