package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// --- Generation ---

// mockLLM implements driven.LLMService with canned responses.
type mockLLM struct {
	mu          sync.Mutex
	text        string
	usage       domain.Usage
	generateErr error
	chunks      []driven.StreamChunk
	streamErr   error
	requests    []driven.GenerationRequest
	// block, when set, is waited on before Generate returns.
	block chan struct{}
}

func (m *mockLLM) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.Generation, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &driven.Generation{Text: m.text, Usage: m.usage}, nil
}

func (m *mockLLM) Stream(_ context.Context, req driven.GenerationRequest) (<-chan driven.StreamChunk, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	ch := make(chan driven.StreamChunk, len(m.chunks))
	for _, c := range m.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLM) lastRequest() driven.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// answerChunks streams text as deltas and ends with a done chunk.
func answerChunks(usage domain.Usage, deltas ...string) []driven.StreamChunk {
	out := make([]driven.StreamChunk, 0, len(deltas)+1)
	for _, d := range deltas {
		out = append(out, driven.StreamChunk{Delta: d})
	}
	return append(out, driven.StreamChunk{Done: true, Usage: usage})
}

// --- Embedding ---

// mockEmbedder implements driven.EmbeddingService. embed decides each
// call's outcome; by default every text gets a vector from vectorFor.
type mockEmbedder struct {
	mu      sync.Mutex
	embed   func(call int, texts []string) ([][]float32, error)
	batches [][]string
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, texts)
	call := len(m.batches)
	m.mu.Unlock()
	if m.embed != nil {
		return m.embed(call, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mockEmbedder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// vectorFor maps a text onto a fixed axis by topic so similarity is predictable.
func vectorFor(text string) []float32 {
	switch {
	case containsFold(text, "roof"):
		return []float32{1, 0, 0}
	case containsFold(text, "termite"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

func transient(status int) error {
	return &domain.TransientError{Op: "mock.embed", StatusCode: status, Err: errors.New("try later")}
}

// noSleep records backoff delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return ctx.Err()
}

// --- Extraction ---

// mockRegistry implements driven.ExtractorRegistry with a canned result.
type mockRegistry struct {
	text  string
	pages int
	err   error
	calls int
}

func (m *mockRegistry) Extract(_ context.Context, _ *domain.Blob) (*driven.StructuredText, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &driven.StructuredText{Text: m.text, PageCount: m.pages}, nil
}

func (m *mockRegistry) Register(_ driven.StructuredExtractor) {}
func (m *mockRegistry) SupportedMIMETypes() []string         { return []string{"text/plain"} }

// mockRenderer writes one placeholder file per page into dir.
type mockRenderer struct {
	pages   int
	err     error
	lastDir string
}

func (m *mockRenderer) Supports(mimeType string) bool {
	return mimeType == "application/pdf" || mimeType == "image/png"
}

func (m *mockRenderer) Render(_ context.Context, _ *domain.Blob, dir string) ([]domain.PageImage, error) {
	m.lastDir = dir
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PageImage, 0, m.pages)
	for i := 1; i <= m.pages; i++ {
		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
			return nil, err
		}
		out = append(out, domain.PageImage{Number: i, Path: path})
	}
	return out, nil
}

// mockOCR returns per-page text keyed by file name; failPages error out.
type mockOCR struct {
	text      string
	failPages map[string]bool
	paths     []string
}

func (m *mockOCR) Recognize(_ context.Context, path string) (string, error) {
	m.paths = append(m.paths, path)
	if m.failPages[filepath.Base(path)] {
		return "", errors.New("tesseract crashed")
	}
	return m.text, nil
}

// mockEnhancer appends a suffix to the path it was given.
type mockEnhancer struct {
	err error
}

func (m *mockEnhancer) Enhance(_ context.Context, path string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return path + ".enhanced", nil
}

// --- Blobs ---

// memBlobs implements driven.BlobStore in memory.
type memBlobs struct {
	mu    sync.Mutex
	data  map[string][]byte
	puts  int
	fails bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fails {
		return errors.New("disk full")
	}
	b.puts++
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Fetch(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *memBlobs) SignedURL(key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("/blobs/%s?ttl=%s", key, ttl), nil
}

func (b *memBlobs) Verify(_ string, _ int64, _ string) error {
	return nil
}

func (b *memBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}
