// Package openai provides a generation service adapter using the OpenAI
// chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/httperr"
	"github.com/custodia-labs/propdocs/internal/adapters/driven/llm/stream"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds a non-streamed request (default: 120s).
	// Streams are bounded by the caller's context only.
	Timeout time.Duration
}

// LLMService provides generation using the OpenAI API.
type LLMService struct {
	api    *httperr.Client
	stream *httperr.Client
	model  string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model         string              `json:"model"`
	Messages      []chatCompletionMsg `json:"messages"`
	MaxTokens     int                 `json:"max_tokens,omitempty"`
	Temperature   float64             `json:"temperature,omitempty"`
	Stream        bool                `json:"stream,omitempty"`
	StreamOptions *streamOptions      `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u *usage) toDomain() domain.Usage {
	if u == nil {
		return domain.Usage{}
	}
	return domain.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *usage    `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// chatCompletionChunk is one streamed SSE payload.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *usage    `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	api := httperr.NewClient("openai generate", cfg.BaseURL, cfg.Timeout).WithBearer(cfg.APIKey)
	return &LLMService{api: api, stream: api.Streaming(), model: cfg.Model}, nil
}

// Generate produces a complete response.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	var chatResp chatCompletionResponse
	if err := s.api.Post(ctx, "/chat/completions", s.buildRequest(req, false), &chatResp); err != nil {
		return nil, err
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no response choices returned")
	}

	return &driven.Generation{
		Text:  chatResp.Choices[0].Message.Content,
		Usage: chatResp.Usage.toDomain(),
	}, nil
}

// Stream produces a response incrementally over server-sent events.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (<-chan driven.StreamChunk, error) {
	resp, err := s.stream.Open(ctx, http.MethodPost, "/chat/completions", s.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return stream.Pump(ctx, resp.Body, parseChunk), nil
}

// parseChunk decodes one SSE line of a chat completion stream.
func parseChunk(line []byte) (stream.Event, error) {
	data, ok := stream.SSEData(line)
	if !ok {
		return stream.Event{Skip: true}, nil
	}
	if string(data) == "[DONE]" {
		return stream.Event{Done: true}, nil
	}

	var chunk chatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return stream.Event{}, fmt.Errorf("openai: decode stream chunk: %w", err)
	}
	if chunk.Error != nil {
		return stream.Event{}, fmt.Errorf("openai error: %s", chunk.Error.Message)
	}

	ev := stream.Event{Usage: chunk.Usage.toDomain()}
	if len(chunk.Choices) > 0 {
		ev.Delta = chunk.Choices[0].Delta.Content
	}
	return ev, nil
}

func (s *LLMService) buildRequest(req driven.GenerationRequest, streaming bool) chatCompletionRequest {
	messages := make([]chatCompletionMsg, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatCompletionMsg{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, chatCompletionMsg{Role: msg.Role, Content: msg.Content})
	}

	body := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if streaming {
		body.Stream = true
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return body
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without generating.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/models")
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
