// Package chunker provides a sentence-aware, overlapping text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultMinLength is the shortest trimmed chunk kept.
const DefaultMinLength = 50

// SnapWindow is how far either side of a window boundary to look for a sentence end.
const SnapWindow = 100

// Processor splits document text into overlapping chunks whose boundaries
// snap to nearby sentence ends. It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	minLength int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum trimmed chunk length.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		minLength: DefaultMinLength,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from document text.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	spans := p.Split(doc.Text)
	if len(spans) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			OwnerID:    doc.OwnerID,
			Index:      index,
			Start:      s.Start,
			End:        s.End,
			Content:    doc.Text[s.Start:s.End],
		})
	}

	return chunks, nil
}

// ChunkID derives a stable chunk ID from its vector key, so re-chunking
// identical text yields identical IDs.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(domain.VectorKey(documentID, index))).String()
}

// Split returns chunk spans over text in byte offsets. The result is a pure
// function of text and the processor settings: consecutive spans overlap by
// at least the configured overlap, starts never decrease, and spans whose
// trimmed content is shorter than the minimum length are dropped.
func (p *Processor) Split(text string) []domain.Span {
	n := len(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var spans []domain.Span
	start := 0
	for start < n {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = p.snap(text, start, end)
		}

		if len(strings.TrimSpace(text[start:end])) >= p.minLength {
			spans = append(spans, domain.Span{Start: start, End: end})
		}
		if end == n {
			break
		}

		next := alignBack(text, end-p.overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return spans
}

// snap moves end to the nearest sentence or paragraph boundary within
// SnapWindow. The boundary must stay past start+overlap so the next window
// still advances. Without a boundary the raw end is used, aligned to a rune.
func (p *Processor) snap(text string, start, end int) int {
	lo := end - SnapWindow
	if floor := start + p.overlap + 1; lo < floor {
		lo = floor
	}
	hi := end + SnapWindow
	if hi > len(text) {
		hi = len(text)
	}

	best := -1
	for pos := lo; pos <= hi; pos++ {
		if !isBoundary(text, pos) {
			continue
		}
		if best == -1 || abs(pos-end) < abs(best-end) {
			best = pos
		}
	}
	if best != -1 {
		return best
	}

	aligned := alignBack(text, end)
	if aligned <= start {
		return end
	}
	return aligned
}

// isBoundary reports whether pos sits just after sentence-ending punctuation
// followed by whitespace, or just after a blank line.
func isBoundary(text string, pos int) bool {
	if pos <= 0 || pos > len(text) {
		return false
	}
	if pos >= 2 && text[pos-2:pos] == "\n\n" {
		return true
	}
	switch text[pos-1] {
	case '.', '!', '?':
		return pos == len(text) || isSpace(text[pos])
	}
	return false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// alignBack moves pos back to the start of the rune containing it.
func alignBack(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
