package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

var tasksHistory int

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show background maintenance tasks",
	Long: `Lists the maintenance tasks run by the scheduler during serve, watch
and tui: reprocessing documents from an older pipeline version and purging
stale cache entries.

  propdocs tasks                     show every task
  propdocs tasks --history 5         include the last five runs of each
  propdocs tasks run cache-purge     run a task now`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Run a task immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRun,
}

func init() {
	tasksCmd.Flags().IntVar(&tasksHistory, "history", 0, "show the last N runs of each task")
	tasksCmd.AddCommand(tasksRunCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx := cmd.Context()
	tasks, err := scheduler.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No tasks scheduled yet. They are created the first time the scheduler starts.")
		return nil
	}

	for i := range tasks {
		t := &tasks[i]
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		cmd.Printf("%s (%s)\n", t.ID, state)
		cmd.Printf("  Name:     %s\n", t.Name)
		cmd.Printf("  Interval: %s\n", t.Interval)
		cmd.Printf("  Last run: %s\n", formatWhen(t.LastRun))
		cmd.Printf("  Next run: %s\n", formatWhen(t.NextRun))
		if t.Failures > 0 {
			cmd.Printf("  Failures: %d (last: %s)\n", t.Failures, t.LastError)
		}

		if tasksHistory > 0 {
			runs, err := scheduler.History(ctx, t.ID, tasksHistory)
			if err != nil {
				return fmt.Errorf("failed to load history for %s: %w", t.ID, err)
			}
			for j := range runs {
				cmd.Printf("    %s\n", formatRun(&runs[j]))
			}
		}
		cmd.Println()
	}
	return nil
}

func runTasksRun(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	cmd.Printf("Running %s...\n", args[0])
	result, err := scheduler.RunNow(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to run task: %w", err)
	}
	cmd.Println(formatRun(&result))
	if !result.Success() {
		return fmt.Errorf("task %s failed", args[0])
	}
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatRun(r *domain.TaskResult) string {
	line := fmt.Sprintf("%s  %d items in %s", formatWhen(r.StartedAt), r.ItemsProcessed, r.Duration().Round(time.Millisecond))
	if !r.Success() {
		line += "  FAILED: " + r.Error
	}
	return line
}
