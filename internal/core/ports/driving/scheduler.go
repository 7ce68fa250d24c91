package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// Scheduler runs background maintenance: stale-document reprocessing and
// cache purging.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for running tasks.
	Stop() error

	// Tasks returns the persisted state of every task.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns the latest runs of a task, newest first.
	History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error)

	// RunNow runs one task immediately and records the result.
	RunNow(ctx context.Context, id string) (domain.TaskResult, error)
}
