package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/salonscope/harvest-cli/internal/model"
	"github.com/salonscope/harvest-cli/internal/task"
)

var (
	tasksStatus   string
	tasksType     string
	tasksActive   bool
	tasksFinished bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and manage harvest tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status or type",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var tasks []model.Task
		switch {
		case tasksActive:
			tasks, err = st.ListActiveTasks(ctx)
		case tasksFinished:
			tasks, err = st.ListFinishedTasks(ctx)
		case tasksStatus != "":
			tasks, err = st.ListTasksByStatus(ctx, model.TaskStatus(tasksStatus))
		case tasksType != "":
			tasks, err = st.ListTasksByType(ctx, model.TaskType(tasksType))
		default:
			tasks, err = st.ListActiveTasks(ctx)
			if err == nil {
				var finished []model.Task
				finished, err = st.ListFinishedTasks(ctx)
				tasks = append(tasks, finished...)
			}
		}
		if err != nil {
			return eris.Wrap(err, "list tasks")
		}

		return printJSON(tasks)
	},
}

var tasksProgressCmd = &cobra.Command{
	Use:   "progress <external-id>",
	Short: "Show per-step progress for one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		task, err := st.GetTask(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get task %s", args[0])
		}

		return printJSON(model.Progress(*task))
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <external-id>",
	Short: "Delete a task record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteTask(ctx, args[0]); err != nil {
			return eris.Wrapf(err, "delete task %s", args[0])
		}
		return nil
	},
}

var tasksStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate task counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := task.NewService(st, nil).Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "task stats")
		}

		return printJSON(stats)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksStatus, "status", "", "filter by status (pending|in_progress|completed|failed)")
	tasksListCmd.Flags().StringVar(&tasksType, "type", "", "filter by type (harvest|generation)")
	tasksListCmd.Flags().BoolVar(&tasksActive, "active", false, "only pending and in-progress tasks")
	tasksListCmd.Flags().BoolVar(&tasksFinished, "finished", false, "only completed and failed tasks")

	tasksCmd.AddCommand(tasksListCmd, tasksProgressCmd, tasksDeleteCmd, tasksStatsCmd)
	rootCmd.AddCommand(tasksCmd)
}
