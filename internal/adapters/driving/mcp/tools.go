package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

const defaultSearchLimit = 10

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the property whose documents are searched"`
	Query   string `json:"query" jsonschema:"the search query"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single ranked chunk.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title"`
	DocumentType string  `json:"document_type"`
	ChunkIndex   int     `json:"chunk_index"`
	Section      string  `json:"section,omitempty"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// AnalyzeInput is the input schema for the analyze_document tool.
type AnalyzeInput struct {
	DocumentID   string `json:"document_id" jsonschema:"the document to analyse"`
	ForceRefresh bool   `json:"force_refresh,omitempty" jsonschema:"rerun even when a completed analysis exists"`
}

// AnalyzeOutput is the output schema for the analyze_document tool.
type AnalyzeOutput struct {
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
	Result       string `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	OwnerID  string `json:"owner_id" jsonschema:"the property the question is about"`
	Question string `json:"question" jsonschema:"the question to answer from the property's documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Citations []CitationOutput `json:"citations"`
	Cached    bool             `json:"cached"`
}

// CitationOutput names a document the answer cites.
type CitationOutput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Mentions   int    `json:"mentions"`
}

// PropertyInput is the input schema for the property_context tool.
type PropertyInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the property to describe"`
}

// PropertyOutput is the output schema for the property_context tool.
type PropertyOutput struct {
	OwnerID string `json:"owner_id"`
	Context string `json:"context"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search a property's documents and return the most relevant passages",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_document",
		Description: "Run a deep, type-specific analysis of one property document",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about a property using its documents, with cited sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "property_context",
		Description: "Describe a property: address, type, year built and other known facts",
	}, s.handlePropertyContext)
}

// handleSearch handles the search_documents tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.Search.Search(ctx, input.OwnerID, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID:   results[i].Document.ID,
			Title:        results[i].Document.DisplayTitle(),
			DocumentType: results[i].Document.Type.String(),
			ChunkIndex:   results[i].Chunk.Index,
			Section:      results[i].Chunk.Section,
			Score:        results[i].Score,
			Content:      results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleAnalyze runs analysis to completion. A failed run is reported in
// the output rather than as a tool error.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	if s.ports.Analysis == nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("analyze_document: %w", errServiceUnavailable)
	}

	snap, err := s.ports.Analysis.StartOrRefresh(ctx, input.DocumentID, input.ForceRefresh)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	return nil, AnalyzeOutput{
		DocumentID:   snap.DocumentID,
		Status:       string(snap.Status),
		Result:       snap.Result,
		Error:        snap.Error,
		InputTokens:  snap.Usage.InputTokens,
		OutputTokens: snap.Usage.OutputTokens,
	}, nil
}

// handleAsk drains the chat stream and returns the completed answer.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, fmt.Errorf("ask: %w", errServiceUnavailable)
	}

	events, err := s.ports.Chat.Answer(ctx, domain.ChatRequest{
		OwnerID:  input.OwnerID,
		Question: input.Question,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	for ev := range events {
		switch ev.Type {
		case domain.ChatEventError:
			return nil, AskOutput{}, errors.New(ev.Error)
		case domain.ChatEventComplete:
			return nil, askOutput(ev), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{}, errors.New("ask: stream ended without an answer")
}

func askOutput(ev domain.ChatEvent) AskOutput {
	out := AskOutput{
		Answer:    ev.Response,
		Citations: make([]CitationOutput, len(ev.Citations)),
		Cached:    ev.Cached,
	}
	for i, c := range ev.Citations {
		out.Citations[i] = CitationOutput{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Mentions:   len(c.Spans),
		}
	}
	return out
}

// handlePropertyContext returns the background the ask tool gives the model.
func (s *Server) handlePropertyContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PropertyInput,
) (*mcp.CallToolResult, PropertyOutput, error) {
	if s.ports.Entities == nil {
		return nil, PropertyOutput{}, fmt.Errorf("property_context: %w", errServiceUnavailable)
	}

	text, err := s.ports.Entities.Context(ctx, input.OwnerID)
	if err != nil {
		return nil, PropertyOutput{}, err
	}
	return nil, PropertyOutput{OwnerID: input.OwnerID, Context: text}, nil
}
