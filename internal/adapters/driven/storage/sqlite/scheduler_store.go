package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const selectTask = `SELECT id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error, failures
	FROM scheduled_tasks`

func (s *schedulerStore) Task(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	task, err := scanTask(s.store.db.QueryRowContext(ctx, selectTask+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, selectTask+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *schedulerStore) PutTask(ctx context.Context, t *domain.ScheduledTask) error {
	if t == nil || t.ID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scheduled_tasks
			(id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, int64(t.Interval/time.Second), boolToInt(t.Enabled),
		formatTime(t.LastRun), formatTime(t.NextRun), formatTime(t.LastSuccess),
		nullString(t.LastError), t.Failures)
	if err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

func (s *schedulerStore) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (s *schedulerStore) AppendResult(ctx context.Context, r *domain.TaskResult) error {
	if r == nil || r.TaskID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.TaskID, formatTime(r.StartedAt), formatTime(r.EndedAt),
		boolToInt(r.Success()), nullString(r.Error), r.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("append result for %s: %w", r.TaskID, err)
	}
	return nil
}

func (s *schedulerStore) History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, error, items_processed
		FROM task_results WHERE task_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskResult
	for rows.Next() {
		var r domain.TaskResult
		var started, ended, msg sql.NullString
		if err := rows.Scan(&r.TaskID, &started, &ended, &msg, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scan task result: %w", err)
		}
		r.StartedAt, r.EndedAt, r.Error = parseTime(started), parseTime(ended), msg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *schedulerStore) TrimHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS n
				FROM task_results
			) WHERE n > ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("trim task history: %w", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	var seconds int64
	var enabled int
	var lastRun, nextRun, lastSuccess, lastError sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &seconds, &enabled, &lastRun, &nextRun, &lastSuccess, &lastError, &t.Failures); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Interval = time.Duration(seconds) * time.Second
	t.Enabled = enabled == 1
	t.LastRun, t.NextRun, t.LastSuccess = parseTime(lastRun), parseTime(nextRun), parseTime(lastSuccess)
	t.LastError = lastError.String
	return &t, nil
}
