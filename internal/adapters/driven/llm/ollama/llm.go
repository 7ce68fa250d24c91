// Package ollama provides a generation service adapter using Ollama.
package ollama

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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout bounds a non-streamed request (default: 120s).
	Timeout time.Duration
}

// LLMService provides generation using Ollama's chat API.
type LLMService struct {
	api    *httperr.Client
	stream *httperr.Client
	model  string
}

// options holds Ollama model options.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is one /api/chat response object; streamed responses send
// one per line and set Done on the last.
type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error,omitempty"`
}

func (r chatResponse) usage() domain.Usage {
	return domain.Usage{InputTokens: r.PromptEvalCount, OutputTokens: r.EvalCount}
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	api := httperr.NewClient("ollama chat", cfg.BaseURL, cfg.Timeout)
	return &LLMService{api: api, stream: api.Streaming(), model: cfg.Model}
}

// Generate produces a complete response.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	var chatResp chatResponse
	if err := s.api.Post(ctx, "/api/chat", s.buildRequest(req, false), &chatResp); err != nil {
		return nil, err
	}
	if chatResp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	return &driven.Generation{Text: chatResp.Message.Content, Usage: chatResp.usage()}, nil
}

// Stream produces a response incrementally from Ollama's NDJSON stream.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (<-chan driven.StreamChunk, error) {
	resp, err := s.stream.Open(ctx, http.MethodPost, "/api/chat", s.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return stream.Pump(ctx, resp.Body, parseLine), nil
}

// parseLine decodes one NDJSON line of a chat stream.
func parseLine(line []byte) (stream.Event, error) {
	var r chatResponse
	if err := json.Unmarshal(line, &r); err != nil {
		return stream.Event{}, fmt.Errorf("ollama: decode stream line: %w", err)
	}
	if r.Error != "" {
		return stream.Event{}, fmt.Errorf("ollama error: %s", r.Error)
	}
	return stream.Event{Delta: r.Message.Content, Done: r.Done, Usage: r.usage()}, nil
}

func (s *LLMService) buildRequest(req driven.GenerationRequest, streaming bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	body := chatRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   streaming,
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.Options = &options{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}
	return body
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/api/tags")
}

// Close is a no-op.
func (s *LLMService) Close() error { return nil }
