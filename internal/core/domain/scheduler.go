package domain

import "time"

// Maintenance task IDs.
const (
	TaskIDReprocessStale = "reprocess-stale"
	TaskIDCachePurge     = "cache-purge"
)

// maxRetryDelay caps how soon a failing task is retried; the task's own
// interval applies when it is shorter.
const maxRetryDelay = 30 * time.Minute

// ScheduledTask is the persisted state of one maintenance task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string

	// Failures counts consecutive failed runs.
	Failures int
}

// Due reports whether the task should run at now. A task that never ran
// is due immediately.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Apply folds a finished run into the task and schedules the next one.
// Failed runs are retried after one minute, doubling per consecutive
// failure up to the smaller of the interval and thirty minutes.
func (t *ScheduledTask) Apply(r TaskResult) {
	t.LastRun = r.StartedAt
	if r.Success() {
		t.LastSuccess = r.EndedAt
		t.LastError = ""
		t.Failures = 0
		t.NextRun = r.EndedAt.Add(t.Interval)
		return
	}
	t.LastError = r.Error
	t.Failures++
	t.NextRun = r.EndedAt.Add(t.retryDelay())
}

func (t *ScheduledTask) retryDelay() time.Duration {
	limit := min(t.Interval, maxRetryDelay)
	delay := time.Minute
	for i := 1; i < t.Failures && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

// TaskResult records one run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time

	// Error is empty for a successful run.
	Error string

	// ItemsProcessed counts documents reprocessed or cache entries purged.
	ItemsProcessed int
}

// Success reports whether the run finished without error.
func (r TaskResult) Success() bool { return r.Error == "" }

// Duration returns how long the run took.
func (r TaskResult) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// TaskConfig switches one task and sets its interval.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SchedulerConfig configures background maintenance.
type SchedulerConfig struct {
	Enabled bool
	Tasks   map[string]TaskConfig
}

// Task returns the configuration of id; unknown tasks are disabled.
func (c SchedulerConfig) Task(id string) TaskConfig {
	return c.Tasks[id]
}

// DefaultSchedulerConfig reprocesses stale documents every six hours and
// purges the cache every fifteen minutes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tasks: map[string]TaskConfig{
			TaskIDReprocessStale: {Enabled: true, Interval: 6 * time.Hour},
			TaskIDCachePurge:     {Enabled: true, Interval: 15 * time.Minute},
		},
	}
}
