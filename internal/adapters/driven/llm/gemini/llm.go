// Package gemini provides a generation service adapter using Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/httperr"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is the generation model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the LLM model to use (default: gemini-1.5-flash).
	Model string
}

// responseIterator yields streamed responses until iterator.Done.
type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

// session is one prepared chat turn.
type session interface {
	Send(ctx context.Context) (*genai.GenerateContentResponse, error)
	Stream(ctx context.Context) responseIterator
}

// LLMService provides generation using the Gemini API.
type LLMService struct {
	client  *genai.Client
	model   string
	prepare func(req driven.GenerationRequest) session
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	s := &LLMService{client: client, model: cfg.Model}
	s.prepare = s.newChat
	return s, nil
}

// chatTurn sends the final user message on a chat session seeded with the
// earlier conversation.
type chatTurn struct {
	cs    *genai.ChatSession
	parts []genai.Part
}

func (c chatTurn) Send(ctx context.Context) (*genai.GenerateContentResponse, error) {
	return c.cs.SendMessage(ctx, c.parts...)
}

func (c chatTurn) Stream(ctx context.Context) responseIterator {
	return c.cs.SendMessageStream(ctx, c.parts...)
}

// newChat builds a model configured for req. Models are cheap handles, so
// one is created per request instead of mutating a shared one.
func (s *LLMService) newChat(req driven.GenerationRequest) session {
	m := s.client.GenerativeModel(s.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		m.SetTemperature(float32(req.Temperature))
	}

	history, last := toContents(req.Messages)
	cs := m.StartChat()
	cs.History = history
	return chatTurn{cs: cs, parts: last}
}

// toContents splits messages into prior history and the parts of the final
// turn. System messages are dropped; the system prompt travels separately.
func toContents(messages []driven.ChatMessage) ([]*genai.Content, []genai.Part) {
	var history []*genai.Content
	for _, msg := range messages {
		role := "user"
		switch msg.Role {
		case "system":
			continue
		case "assistant", "model":
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	if len(history) == 0 {
		return nil, []genai.Part{genai.Text("")}
	}
	last := history[len(history)-1]
	return history[:len(history)-1], last.Parts
}

// Generate produces a complete response.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	resp, err := s.prepare(req).Send(ctx)
	if err != nil {
		return nil, httperr.FromGoogle("gemini generate", err)
	}
	return &driven.Generation{Text: responseText(resp), Usage: responseUsage(resp)}, nil
}

// Stream produces a response incrementally.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (<-chan driven.StreamChunk, error) {
	it := s.prepare(req).Stream(ctx)

	// The first response surfaces request errors synchronously.
	first, err := it.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return nil, httperr.FromGoogle("gemini stream", err)
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)

		send := func(c driven.StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var usage domain.Usage
		resp := first
		for resp != nil {
			if u := responseUsage(resp); u.InputTokens != 0 || u.OutputTokens != 0 {
				usage = u
			}
			if text := responseText(resp); text != "" && !send(driven.StreamChunk{Delta: text}) {
				return
			}

			resp, err = it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				if ctx.Err() == nil {
					send(driven.StreamChunk{Err: httperr.FromGoogle("gemini stream", err)})
				}
				return
			}
		}
		send(driven.StreamChunk{Done: true, Usage: usage})
	}()
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func responseUsage(resp *genai.GenerateContentResponse) domain.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return domain.Usage{}
	}
	return domain.Usage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by reading the first entry of the model list.
func (s *LLMService) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("gemini: client not initialised")
	}
	if _, err := s.client.ListModels(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
