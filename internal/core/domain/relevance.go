package domain

import "time"

// Candidate is one retrieval candidate: a chunk, or a whole document when
// Chunk is nil. Candidates are ephemeral and never persisted.
type Candidate struct {
	// Document is the owning document. Always set.
	Document *Document

	// Chunk is the matched chunk, nil for document-level ranking.
	Chunk *Chunk

	// Similarity is the cosine similarity from the vector index, if any.
	Similarity float64

	// HasSimilarity is false when no embedding was available.
	HasSimilarity bool
}

// Key identifies the candidate for deterministic tie-breaking.
func (c Candidate) Key() string {
	if c.Chunk != nil {
		return c.Chunk.VectorKey()
	}
	if c.Document != nil {
		return c.Document.ID
	}
	return ""
}

// Text returns the text scored by keyword signals.
func (c Candidate) Text() string {
	if c.Chunk != nil {
		return c.Chunk.Content
	}
	if c.Document != nil {
		return c.Document.Title + "\n" + c.Document.Text
	}
	return ""
}

// UploadedAt returns the document upload time used for freshness and tie-breaks.
func (c Candidate) UploadedAt() time.Time {
	if c.Document == nil {
		return time.Time{}
	}
	return c.Document.CreatedAt
}

// ScoreBreakdown holds the normalised signals behind a composite score.
type ScoreBreakdown struct {
	Semantic     float64 `json:"semantic"`
	Keyword      float64 `json:"keyword"`
	TypeAffinity float64 `json:"typeAffinity"`
	Freshness    float64 `json:"freshness"`
}

// RankedCandidate is a candidate with its composite score.
type RankedCandidate struct {
	Candidate
	Score     float64
	Breakdown ScoreBreakdown
}

// RankWeights weights the four signals of a composite score.
type RankWeights struct {
	Semantic     float64
	Keyword      float64
	TypeAffinity float64
	Freshness    float64
}

// ChunkRankWeights favours semantic similarity for chunk-level ranking.
var ChunkRankWeights = RankWeights{Semantic: 0.5, Keyword: 0.3, TypeAffinity: 0.2}

// DocumentRankWeights favours keyword and type signals for document-level ranking.
var DocumentRankWeights = RankWeights{Semantic: 0.2, Keyword: 0.35, TypeAffinity: 0.3, Freshness: 0.15}

// Composite returns the weighted sum of the breakdown.
func (w RankWeights) Composite(b ScoreBreakdown) float64 {
	return w.Semantic*b.Semantic +
		w.Keyword*b.Keyword +
		w.TypeAffinity*b.TypeAffinity +
		w.Freshness*b.Freshness
}

// SearchResult is a ranked chunk hydrated for display.
type SearchResult struct {
	// Document is the matched document.
	Document Document

	// Chunk is the specific chunk that matched.
	Chunk Chunk

	// Score is the composite relevance score.
	Score float64

	// Breakdown explains the score.
	Breakdown ScoreBreakdown
}

// VectorMatch is one nearest-neighbour hit from the vector index.
type VectorMatch struct {
	Key        string
	Similarity float64
	Metadata   VectorMetadata
}

// VectorMetadata is stored alongside every vector so a citation can be
// built without a second lookup.
type VectorMetadata struct {
	OwnerID        string       `json:"ownerId"`
	DocumentID     string       `json:"documentId"`
	ChunkIndex     int          `json:"chunkIndex"`
	ContentPreview string       `json:"contentPreview"`
	DocumentTitle  string       `json:"documentTitle"`
	DocumentType   DocumentType `json:"documentType"`
}

// VectorPreviewLength bounds VectorMetadata.ContentPreview.
const VectorPreviewLength = 500

// VectorRecord is a vector with its metadata, ready for upsert.
type VectorRecord struct {
	Key      string
	Vector   []float32
	Metadata VectorMetadata
}
