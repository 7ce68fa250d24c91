package list

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func samplePassages() []domain.SearchResult {
	return []domain.SearchResult{
		{
			Document:  domain.Document{ID: "doc-1", Title: "Home Inspection", Type: domain.DocumentTypeHomeInspection},
			Chunk:     domain.Chunk{Index: 3, Section: "Roof", Content: "Shingles  show\n granule loss."},
			Score:     0.91,
			Breakdown: domain.ScoreBreakdown{Semantic: 0.8, Keyword: 0.5, TypeAffinity: 1},
		},
		{Document: domain.Document{ID: "doc-2", Filename: "pest.pdf", Type: domain.DocumentTypePestInspection}, Score: 0.62},
		{Document: domain.Document{ID: "doc-3", Type: domain.DocumentTypeOther}, Score: 0.40},
	}
}

func TestPassageHits(t *testing.T) {
	hits := PassageHits(samplePassages())

	require.Len(t, hits, 3)
	assert.Equal(t, "doc-1", hits[0].Document.ID)
	assert.Equal(t, "Roof", hits[0].Section)
	assert.Equal(t, 3, hits[0].Chunk)
	assert.True(t, hits[0].IsPassage())
	assert.Equal(t, 0.8, hits[0].Breakdown.Semantic)
}

func TestDocumentHits(t *testing.T) {
	doc := &domain.Document{ID: "doc-9", Title: "HOA Budget", Type: domain.DocumentTypeHOA}
	ranked := []domain.RankedCandidate{
		{Candidate: domain.Candidate{Document: doc, Chunk: &domain.Chunk{Section: "Reserves", Content: "Reserve fund"}}, Score: 0.7},
		{Candidate: domain.Candidate{}, Score: 0.9},
	}

	hits := DocumentHits(ranked)

	require.Len(t, hits, 1)
	assert.Equal(t, "doc-9", hits[0].Document.ID)
	assert.False(t, hits[0].IsPassage())
	assert.Equal(t, "Reserves", hits[0].Section)
	assert.Equal(t, "Reserve fund", hits[0].Preview)
}

func TestNewHits_Defaults(t *testing.T) {
	h := NewHits(nil, "")

	assert.NotNil(t, h.styles)
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Current())
	assert.True(t, h.BreakdownVisible())
	assert.Contains(t, h.View(), "No results")
}

func TestHits_Navigation(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Set(PassageHits(samplePassages()), "")

	h.Prev()
	assert.Equal(t, 0, h.Cursor())

	h.Next()
	h.Next()
	h.Next()
	assert.Equal(t, 2, h.Cursor())
	assert.Equal(t, "doc-3", h.Current().Document.ID)

	h.Set(PassageHits(samplePassages()[:1]), "")
	assert.Equal(t, 0, h.Cursor())
}

func TestHits_View(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Resize(80, 30)
	h.Set(PassageHits(samplePassages()), "")

	out := h.View()

	assert.Contains(t, out, "3 passages")
	assert.Contains(t, out, "> Home Inspection")
	assert.Contains(t, out, "Home Inspection Report, chunk 3, Roof")
	assert.Contains(t, out, "Shingles show granule loss.")
	assert.Contains(t, out, "pest.pdf")
	assert.Contains(t, out, "(Untitled)")
	assert.Contains(t, out, "semantic 0.80  keyword 0.50  type 1.00  fresh 0.00")
}

func TestHits_View_DocumentNoun(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Set(nil, "documents")

	assert.Contains(t, h.View(), "No documents")
}

func TestHits_ToggleBreakdown(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Resize(80, 30)
	h.Set(PassageHits(samplePassages()), "")

	h.ToggleBreakdown()

	assert.False(t, h.BreakdownVisible())
	assert.NotContains(t, h.View(), "semantic")
}

func TestHits_View_ScrollsToCursor(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Resize(80, 5)
	h.Set(PassageHits(samplePassages()), "")

	h.Next()
	h.Next()
	out := h.View()

	assert.Contains(t, out, "(Untitled)")
	assert.NotContains(t, out, "Home Inspection")
}

func TestHits_View_LongTitle(t *testing.T) {
	h := NewHits(nil, "passages")
	h.Resize(40, 30)
	h.Set([]Hit{{Document: domain.Document{Title: strings.Repeat("x", 100)}, Chunk: 0}}, "")

	assert.Contains(t, h.View(), "...")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcd...", clip("abcdefghij", 7))
}

func TestFormatBreakdown(t *testing.T) {
	got := FormatBreakdown(domain.ScoreBreakdown{Semantic: 0.5, Keyword: 0.25, TypeAffinity: 0, Freshness: 1})

	assert.Equal(t, "semantic 0.50  keyword 0.25  type 0.00  fresh 1.00", got)
}
