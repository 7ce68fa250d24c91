// Package anthropic provides a generation service adapter using the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds a non-streamed request (default: 120s).
	Timeout time.Duration
}

// LLMService provides generation using the Anthropic API.
type LLMService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Usage      usage     `json:"usage"`
	Error      *apiError `json:"error,omitempty"`
}

// streamEvent is the data payload of one server-sent event.
type streamEvent struct {
	Type    string `json:"type"`
	Message struct {
		Usage usage `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage usage     `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
	}, nil
}

// Generate produces a complete response.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	resp, err := s.post(ctx, s.client, s.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return nil, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}

	var b strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return &driven.Generation{
		Text: b.String(),
		Usage: domain.Usage{
			InputTokens:  msgResp.Usage.InputTokens,
			OutputTokens: msgResp.Usage.OutputTokens,
		},
	}, nil
}

// Stream produces a response incrementally from the Messages event stream.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (<-chan driven.StreamChunk, error) {
	resp, err := s.post(ctx, s.streamClient, s.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	return stream.Pump(ctx, resp.Body, newEventParser()), nil
}

// newEventParser returns a parser for one stream. Input tokens arrive on
// message_start and output tokens on message_delta, so usage is carried
// across events.
func newEventParser() stream.LineParser {
	var total domain.Usage
	return func(line []byte) (stream.Event, error) {
		data, ok := stream.SSEData(line)
		if !ok {
			return stream.Event{Skip: true}, nil
		}

		var ev streamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return stream.Event{}, fmt.Errorf("anthropic: decode stream event: %w", err)
		}

		switch ev.Type {
		case "message_start":
			total.InputTokens = ev.Message.Usage.InputTokens
			return stream.Event{Usage: total}, nil
		case "content_block_delta":
			if ev.Delta.Type != "text_delta" {
				return stream.Event{Skip: true}, nil
			}
			return stream.Event{Delta: ev.Delta.Text}, nil
		case "message_delta":
			total.OutputTokens = ev.Usage.OutputTokens
			return stream.Event{Usage: total}, nil
		case "message_stop":
			return stream.Event{Done: true}, nil
		case "error":
			msg := "unknown error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			if ev.Error != nil && ev.Error.Type == "overloaded_error" {
				return stream.Event{}, &domain.TransientError{Op: "anthropic stream", Err: fmt.Errorf("%s", msg)}
			}
			return stream.Event{}, fmt.Errorf("anthropic error: %s", msg)
		default:
			return stream.Event{Skip: true}, nil
		}
	}
}

func (s *LLMService) buildRequest(req driven.GenerationRequest, streaming bool) messagesRequest {
	messages := make([]messagesMessage, 0, len(req.Messages))
	system := req.System
	for _, msg := range req.Messages {
		// The Messages API takes the system prompt as a top-level field.
		if msg.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		messages = append(messages, messagesMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return messagesRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
		Stream:      streaming,
	}
}

func (s *LLMService) post(ctx context.Context, client *http.Client, body messagesRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, httperr.FromTransport("anthropic messages", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, httperr.FromResponse("anthropic messages", resp.StatusCode, resp.Header, errBody)
	}
	return resp, nil
}

func (s *LLMService) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models, which does not consume tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
