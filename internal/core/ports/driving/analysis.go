package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// AnalysisService drives the per-document analysis state machine.
type AnalysisService interface {
	// StartOrRefresh runs analysis to completion and returns the final snapshot.
	// A completed record is returned unchanged unless forceRefresh is set.
	StartOrRefresh(ctx context.Context, documentID string, forceRefresh bool) (domain.AnalysisSnapshot, error)

	// Enqueue starts analysis in the background and returns immediately.
	Enqueue(ctx context.Context, documentID string, forceRefresh bool) (domain.AnalysisSnapshot, error)

	// Status returns the current snapshot for polling.
	Status(ctx context.Context, documentID string) (domain.AnalysisSnapshot, error)
}
