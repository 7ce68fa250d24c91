package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// SchedulerStore persists maintenance task state and run history so
// schedules survive restarts.
type SchedulerStore interface {
	// Task returns nil and no error when id is unknown.
	Task(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// Tasks returns every task ordered by ID.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// PutTask inserts or replaces a task.
	PutTask(ctx context.Context, task *domain.ScheduledTask) error

	DeleteTask(ctx context.Context, id string) error

	AppendResult(ctx context.Context, result *domain.TaskResult) error

	// History returns up to limit results for id, newest first.
	History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error)

	// TrimHistory keeps the newest keep results of each task.
	TrimHistory(ctx context.Context, keep int) error
}
