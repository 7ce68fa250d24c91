package services

import (
	"sort"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// DefaultMinScore drops candidates with no real relevance.
const DefaultMinScore = 0.12

const scoreEpsilon = 1e-9

// RelevanceRanker combines semantic, keyword, type-affinity and freshness
// signals into one composite score and selects the best candidates.
type RelevanceRanker struct {
	minScore float64
	now      func() time.Time
}

// NewRelevanceRanker creates a ranker. A negative minScore uses DefaultMinScore.
func NewRelevanceRanker(minScore float64) *RelevanceRanker {
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &RelevanceRanker{minScore: minScore, now: time.Now}
}

// RankChunks ranks chunk candidates with the chunk weights. Freshness is not scored.
func (r *RelevanceRanker) RankChunks(ownerID, query string, candidates []domain.Candidate, topK int) []domain.RankedCandidate {
	return r.rank(ownerID, query, candidates, topK, domain.ChunkRankWeights, false)
}

// RankDocuments ranks whole documents with the document weights, including freshness.
func (r *RelevanceRanker) RankDocuments(ownerID, query string, candidates []domain.Candidate, topK int) []domain.RankedCandidate {
	return r.rank(ownerID, query, candidates, topK, domain.DocumentRankWeights, true)
}

func (r *RelevanceRanker) rank(
	ownerID, query string,
	candidates []domain.Candidate,
	topK int,
	weights domain.RankWeights,
	withFreshness bool,
) []domain.RankedCandidate {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	terms := significantTerms(query)
	now := r.now()

	ranked := make([]domain.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		// Candidates from another owner never rank, whatever produced them.
		if c.Document == nil || c.Document.OwnerID != ownerID {
			continue
		}

		b := domain.ScoreBreakdown{
			Keyword:      keywordScore(terms, c.Text()),
			TypeAffinity: typeAffinityScore(terms, c.Document.Type),
		}
		if c.HasSimilarity {
			b.Semantic = clamp01(c.Similarity)
		}
		if withFreshness {
			b.Freshness = freshness(now, c.UploadedAt())
		}

		score := weights.Composite(b)
		if score < r.minScore {
			continue
		}
		ranked = append(ranked, domain.RankedCandidate{Candidate: c, Score: score, Breakdown: b})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if d := a.Score - b.Score; d > scoreEpsilon || d < -scoreEpsilon {
			return d > 0
		}
		if d := a.Breakdown.Semantic - b.Breakdown.Semantic; d > scoreEpsilon || d < -scoreEpsilon {
			return d > 0
		}
		if ta, tb := a.UploadedAt(), b.UploadedAt(); !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.Key() < b.Key()
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// freshness is a step function of document age.
func freshness(now, uploaded time.Time) float64 {
	if uploaded.IsZero() {
		return 0
	}
	age := now.Sub(uploaded)
	switch {
	case age < 30*24*time.Hour:
		return 1.0
	case age < 90*24*time.Hour:
		return 0.7
	case age < 180*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
