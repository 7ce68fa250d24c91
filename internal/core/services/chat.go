package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Ensure ChatOrchestrator implements the interface.
var _ driving.ChatService = (*ChatOrchestrator)(nil)

// Retrieval bounds for chat prompts.
const (
	MinChatTopK            = 4
	MaxChatTopK            = 8
	DefaultHistoryTurns    = 6
	DefaultMaxHistoryTurns = 50
	MaxQuestionLength      = 4000
	sourcePreviewLength    = 240
	chatMaxTokens          = 1500
)

const fallbackChatSystem = `You answer questions about a property using only the supplied document excerpts and property context.
Cite every fact by naming the source document title exactly as given. If the excerpts do not contain the answer, say so.`

// ChatOrchestrator answers questions with retrieval-augmented generation
// and streams the answer with citations.
type ChatOrchestrator struct {
	search       driving.SearchService
	entities     driving.EntityService
	llm          driven.LLMService
	cache        driven.Cache
	prompts      driven.PromptStore
	topK         int
	historyTurns int
	maxHistory   int
}

// NewChatOrchestrator creates a chat orchestrator. entities and cache may be nil.
func NewChatOrchestrator(
	search driving.SearchService,
	entities driving.EntityService,
	llm driven.LLMService,
	cache driven.Cache,
	settings domain.RetrievalSettings,
) *ChatOrchestrator {
	topK := settings.TopK
	switch {
	case topK == 0:
		topK = DefaultTopK
	case topK < MinChatTopK:
		topK = MinChatTopK
	case topK > MaxChatTopK:
		topK = MaxChatTopK
	}
	turns := settings.HistoryTurns
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}
	maxHistory := settings.MaxHistoryTurns
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistoryTurns
	}
	return &ChatOrchestrator{
		search:       search,
		entities:     entities,
		llm:          llm,
		cache:        cache,
		topK:         topK,
		historyTurns: turns,
		maxHistory:   maxHistory,
	}
}

// SetPromptStore sets the store for the chat system prompt.
func (o *ChatOrchestrator) SetPromptStore(store driven.PromptStore) {
	o.prompts = store
}

// ResponseCacheKey keys a cached answer by owner and normalised question.
func ResponseCacheKey(ownerID, normalizedQuestion string) string {
	sum := sha256.Sum256([]byte(normalizedQuestion))
	return ownerID + ":" + hex.EncodeToString(sum[:])
}

// ResponseCachePrefix matches every cached answer of an owner.
func ResponseCachePrefix(ownerID string) string {
	return ownerID + ":*"
}

// Answer validates the request, serves cached answers as a replayed stream,
// and otherwise retrieves context and streams a fresh generation.
// Retrieval and stream-open failures are returned directly; failures after
// streaming starts arrive as a terminal error event.
func (o *ChatOrchestrator) Answer(ctx context.Context, req domain.ChatRequest) (<-chan domain.ChatEvent, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	normalized := req.NormalizedQuestion()
	key := ResponseCacheKey(req.OwnerID, normalized)

	logger.Section("Chat")
	logger.Debug("Owner: %s, question: %q, history: %d turns", req.OwnerID, normalized, len(req.History))

	if o.cache != nil {
		if v, ok := o.cache.Get(driven.CacheQueryResponse, key); ok {
			if answer, ok := v.(domain.ChatAnswer); ok {
				logger.Debug("Response cache hit")
				out := make(chan domain.ChatEvent, 16)
				go replay(ctx, out, answer)
				return out, nil
			}
		}
	}

	if o.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	entityContext := ""
	if o.entities != nil {
		text, err := o.entities.Context(ctx, req.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("entity context: %w", err)
		}
		entityContext = text
	}

	results, err := o.search.Search(ctx, req.OwnerID, req.Question, o.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	logger.Debug("Selected %d chunks", len(results))

	stream, err := o.llm.Stream(ctx, driven.GenerationRequest{
		System:      o.systemPrompt(),
		Messages:    o.buildMessages(req, entityContext, results),
		MaxTokens:   chatMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationStream, err)
	}

	out := make(chan domain.ChatEvent, 16)
	go o.forward(ctx, stream, out, key, results)
	return out, nil
}

func (o *ChatOrchestrator) validate(req domain.ChatRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return domain.NewValidationError("ownerId", "is required")
	}
	if strings.TrimSpace(req.Question) == "" {
		return domain.NewValidationError("question", "is required")
	}
	if len(req.Question) > MaxQuestionLength {
		return domain.NewValidationError("question", fmt.Sprintf("exceeds %d characters", MaxQuestionLength))
	}
	if len(req.History) > o.maxHistory {
		return domain.NewValidationError("history", fmt.Sprintf("exceeds %d turns", o.maxHistory))
	}
	for i, turn := range req.History {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			return domain.NewValidationError(fmt.Sprintf("history[%d].role", i), "must be user or assistant")
		}
	}
	return nil
}

func (o *ChatOrchestrator) systemPrompt() string {
	if o.prompts != nil {
		if p, err := o.prompts.Load(driven.PromptChatSystem); err == nil && p != "" {
			return p
		}
	}
	return fallbackChatSystem
}

// buildMessages keeps the most recent history turns and appends the
// question with the entity context and tagged excerpts.
func (o *ChatOrchestrator) buildMessages(req domain.ChatRequest, entityContext string, results []domain.SearchResult) []driven.ChatMessage {
	history := req.History
	if len(history) > o.historyTurns {
		history = history[len(history)-o.historyTurns:]
	}

	messages := make([]driven.ChatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: BuildChatPrompt(req.Question, entityContext, results)})
}

// BuildChatPrompt renders the user turn sent for generation.
func BuildChatPrompt(question, entityContext string, results []domain.SearchResult) string {
	var b strings.Builder
	if entityContext != "" {
		b.WriteString("Property context:\n")
		b.WriteString(entityContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Document excerpts:\n")
	if len(results) == 0 {
		b.WriteString("(no relevant excerpts were found)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] Source: %s (%s)", i+1, r.Document.DisplayTitle(), r.Document.Type)
		if r.Chunk.Section != "" {
			fmt.Fprintf(&b, ", section: %s", r.Chunk.Section)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(r.Chunk.Content))
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

// forward relays generation deltas, then emits the complete event with
// citations and caches the answer. Any stream failure ends with an error event.
func (o *ChatOrchestrator) forward(
	ctx context.Context,
	stream <-chan driven.StreamChunk,
	out chan<- domain.ChatEvent,
	key string,
	results []domain.SearchResult,
) {
	defer close(out)

	var (
		b     strings.Builder
		usage domain.Usage
		done  bool
	)
	for chunk := range stream {
		if chunk.Err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Generation stream failed: %v", chunk.Err)
			send(ctx, out, domain.ChatEvent{Type: domain.ChatEventError, Error: streamErrorMessage(chunk.Err)})
			return
		}
		if chunk.Delta != "" {
			b.WriteString(chunk.Delta)
			if !send(ctx, out, domain.ChatEvent{Type: domain.ChatEventContent, Content: chunk.Delta}) {
				return
			}
		}
		if chunk.Done {
			usage = chunk.Usage
			done = true
		}
	}

	if ctx.Err() != nil {
		return
	}
	response := b.String()
	if !done || strings.TrimSpace(response) == "" {
		send(ctx, out, domain.ChatEvent{Type: domain.ChatEventError, Error: streamErrorMessage(errors.New("stream ended without a complete answer"))})
		return
	}

	answer := domain.ChatAnswer{
		Response:  response,
		Citations: ExtractCitations(response, results),
		Sources:   sourceRefs(results),
		Usage:     usage,
	}
	if o.cache != nil {
		o.cache.Put(driven.CacheQueryResponse, key, answer)
	}
	send(ctx, out, domain.ChatEvent{
		Type:      domain.ChatEventComplete,
		Response:  answer.Response,
		Citations: answer.Citations,
		Sources:   answer.Sources,
		Usage:     &answer.Usage,
	})
}

func streamErrorMessage(err error) string {
	return fmt.Sprintf("%v: %v", domain.ErrGenerationStream, err)
}

var replayTokens = regexp.MustCompile(`\S+\s*|\s+`)

// replay streams a cached answer word by word, then completes it.
func replay(ctx context.Context, out chan<- domain.ChatEvent, answer domain.ChatAnswer) {
	defer close(out)
	for _, tok := range replayTokens.FindAllString(answer.Response, -1) {
		if !send(ctx, out, domain.ChatEvent{Type: domain.ChatEventContent, Content: tok, Cached: true}) {
			return
		}
	}
	send(ctx, out, domain.ChatEvent{
		Type:      domain.ChatEventComplete,
		Response:  answer.Response,
		Citations: answer.Citations,
		Sources:   answer.Sources,
		Cached:    true,
	})
}

func send(ctx context.Context, out chan<- domain.ChatEvent, ev domain.ChatEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func sourceRefs(results []domain.SearchResult) []domain.SourceRef {
	refs := make([]domain.SourceRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, domain.SourceRef{
			DocumentID: r.Document.ID,
			Title:      r.Document.DisplayTitle(),
			Type:       r.Document.Type,
			ChunkIndex: r.Chunk.Index,
			Score:      r.Score,
			Preview:    r.Chunk.Preview(sourcePreviewLength),
		})
	}
	return refs
}

// ExtractCitations finds mentions of the supplied documents' titles in the
// answer. A title matches case-insensitively as written, without its file
// extension, or with underscores and hyphens read as spaces. Documents that
// were not supplied are never cited.
func ExtractCitations(response string, results []domain.SearchResult) []domain.Citation {
	type match struct {
		span  domain.Span
		docID string
	}

	var (
		citations []domain.Citation
		taken     []domain.Span
		order     = map[string]int{}
	)
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.Document.ID] {
			continue
		}
		seen[r.Document.ID] = true
		title := r.Document.DisplayTitle()
		order[r.Document.ID] = len(citations)
		citations = append(citations, domain.Citation{DocumentID: r.Document.ID, Title: title})
	}

	var matches []match
	for _, c := range citations {
		for _, variant := range titleVariants(c.Title) {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(variant))
			for _, loc := range re.FindAllStringIndex(response, -1) {
				matches = append(matches, match{span: domain.Span{Start: loc[0], End: loc[1]}, docID: c.DocumentID})
			}
		}
	}

	// Longer matches win overlaps, so a full filename beats its stem.
	sort.SliceStable(matches, func(i, j int) bool {
		li := matches[i].span.End - matches[i].span.Start
		lj := matches[j].span.End - matches[j].span.Start
		if li != lj {
			return li > lj
		}
		return matches[i].span.Start < matches[j].span.Start
	})
	for _, m := range matches {
		if overlapsAny(m.span, taken) {
			continue
		}
		taken = append(taken, m.span)
		c := &citations[order[m.docID]]
		c.Spans = append(c.Spans, m.span)
	}

	cited := citations[:0]
	for _, c := range citations {
		if len(c.Spans) == 0 {
			continue
		}
		sort.Slice(c.Spans, func(i, j int) bool { return c.Spans[i].Start < c.Spans[j].Start })
		cited = append(cited, c)
	}
	return cited
}

// minTitleVariant avoids citing on incidental short words.
const minTitleVariant = 3

func titleVariants(title string) []string {
	stem := strings.TrimSuffix(title, filepath.Ext(title))
	spaced := strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stem)), " ")

	var out []string
	seen := map[string]bool{}
	for _, v := range []string{title, stem, spaced} {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if len(v) < minTitleVariant || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func overlapsAny(s domain.Span, spans []domain.Span) bool {
	for _, t := range spans {
		if s.Start < t.End && t.Start < s.End {
			return true
		}
	}
	return false
}
