package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// StaleCachePurger drops cached entries produced by an older pipeline version.
type StaleCachePurger interface {
	PurgeStale() int
}

// TaskFunc performs one run of a task and reports how many items it handled.
type TaskFunc func(ctx context.Context) (int, error)

type maintenanceTask struct {
	name string
	run  TaskFunc
}

const (
	schedulerTick = time.Minute
	historyKeep   = 100
)

// Scheduler runs maintenance tasks on their intervals. Task state lives in
// the SchedulerStore, so a restart resumes the schedule. A task never runs
// twice at once.
type Scheduler struct {
	cfg   domain.SchedulerConfig
	store driven.SchedulerStore
	tasks map[string]maintenanceTask
	tick  time.Duration
	now   func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	active map[string]bool
	wg     sync.WaitGroup
}

// NewScheduler registers the reprocess-stale and cache-purge tasks.
// documents and purger may be nil; their tasks then do nothing.
func NewScheduler(
	cfg domain.SchedulerConfig,
	store driven.SchedulerStore,
	documents driving.DocumentService,
	purger StaleCachePurger,
) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		store:  store,
		tasks:  map[string]maintenanceTask{},
		tick:   schedulerTick,
		now:    time.Now,
		active: map[string]bool{},
	}
	s.Register(domain.TaskIDReprocessStale, "Reprocess stale documents", func(ctx context.Context) (int, error) {
		if documents == nil {
			return 0, nil
		}
		return documents.ReprocessStale(ctx)
	})
	s.Register(domain.TaskIDCachePurge, "Purge stale cache entries", func(context.Context) (int, error) {
		if purger == nil {
			return 0, nil
		}
		return purger.PurgeStale(), nil
	})
	return s
}

// Register adds or replaces a task. Call it before Start.
func (s *Scheduler) Register(id, name string, run TaskFunc) {
	s.tasks[id] = maintenanceTask{name: name, run: run}
}

// Start syncs task state with the configuration, then dispatches due
// tasks every tick until ctx ends or Stop is called. It returns nil
// immediately when the scheduler is disabled or already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		s.wg.Wait()
	}()

	if err := s.sync(ctx); err != nil {
		logger.Warn("scheduler: sync tasks: %v", err)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		s.dispatch(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// sync creates missing tasks and applies configured intervals. A new or
// re-timed task first runs one interval from now.
func (s *Scheduler) sync(ctx context.Context) error {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := s.cfg.Task(id)
		task, err := s.store.Task(ctx, id)
		if err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
		if task == nil {
			if !cfg.Enabled {
				continue
			}
			task = &domain.ScheduledTask{ID: id, NextRun: s.now().Add(cfg.Interval)}
		}
		if task.Interval != cfg.Interval {
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Name = s.tasks[id].name
		task.Interval = cfg.Interval
		task.Enabled = cfg.Enabled
		if err := s.store.PutTask(ctx, task); err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
	}
	return nil
}

// dispatch starts every due task that is not already running.
func (s *Scheduler) dispatch(ctx context.Context) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		logger.Warn("scheduler: list tasks: %v", err)
		return
	}

	now := s.now()
	for _, task := range tasks {
		if _, known := s.tasks[task.ID]; !known || !task.Due(now) {
			continue
		}
		if !s.claim(ctx, task.ID) {
			continue
		}
		go func(task domain.ScheduledTask) {
			defer s.release(task.ID)
			s.execute(ctx, task)
		}(task)
	}
}

// claim marks id running and adds it to the wait group. It fails when id
// is already running or ctx has ended; checking ctx under mu keeps Stop's
// Wait from racing a late Add.
func (s *Scheduler) claim(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] || ctx.Err() != nil {
		return false
	}
	s.active[id] = true
	s.wg.Add(1)
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
	s.wg.Done()
}

// execute runs task and persists the outcome. Persistence outlives ctx so
// a run interrupted by shutdown is still recorded.
func (s *Scheduler) execute(ctx context.Context, task domain.ScheduledTask) domain.TaskResult {
	result := domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	n, err := s.tasks[task.ID].run(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = n

	switch {
	case err != nil:
		result.Error = err.Error()
		logger.Warn("scheduler: %s failed: %v", task.ID, err)
	case n > 0:
		logger.Info("scheduler: %s handled %d items in %s", task.ID, n, result.Duration().Round(time.Millisecond))
	default:
		logger.Debug("scheduler: %s had nothing to do", task.ID)
	}

	task.Apply(result)
	save := context.WithoutCancel(ctx)
	if err := s.store.PutTask(save, &task); err != nil {
		logger.Warn("scheduler: save %s: %v", task.ID, err)
	}
	if err := s.store.AppendResult(save, &result); err != nil {
		logger.Warn("scheduler: record %s: %v", task.ID, err)
	}
	if err := s.store.TrimHistory(save, historyKeep); err != nil {
		logger.Warn("scheduler: trim history: %v", err)
	}
	return result
}

// RunNow runs id immediately, whether or not it is due or enabled. A
// failed run is reported in the result's Error, not as an error.
func (s *Scheduler) RunNow(ctx context.Context, id string) (domain.TaskResult, error) {
	def, ok := s.tasks[id]
	if !ok {
		return domain.TaskResult{}, fmt.Errorf("task %q: %w", id, domain.ErrNotFound)
	}
	if !s.claim(ctx, id) {
		if err := ctx.Err(); err != nil {
			return domain.TaskResult{}, err
		}
		return domain.TaskResult{}, fmt.Errorf("task %q is already running", id)
	}
	defer s.release(id)

	task, err := s.store.Task(ctx, id)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if task == nil {
		cfg := s.cfg.Task(id)
		task = &domain.ScheduledTask{ID: id, Name: def.name, Interval: cfg.Interval, Enabled: cfg.Enabled}
	}
	return s.execute(ctx, *task), nil
}

// Tasks returns the persisted task states.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.Tasks(ctx)
}

// History returns the latest runs of id, newest first.
func (s *Scheduler) History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.History(ctx, id, limit)
}
