package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Inspect and trigger recurring tasks",
}

var schedulerTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List registered recurring tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		data, err := client.Get("/api/v1/admin/scheduler/tasks")
		if err != nil {
			return err
		}

		var tasks []TaskStatusResponse
		if err := unmarshal(data, &tasks); err != nil {
			return err
		}

		render(tasks, func() {
			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				rows = append(rows, []string{
					task.Name,
					time.Duration(task.Interval).String(),
					localTime(orDash(task.LastRunAt)),
					yesNo(task.IsRunning),
				})
			}
			printTable([]string{"NAME", "INTERVAL", "LAST RUN", "RUNNING"}, rows)
		})
		return nil
	},
}

var schedulerTriggerCmd = &cobra.Command{
	Use:   "trigger <task>",
	Short: "Run one recurring task out of band",
	Long: `Run one recurring task immediately instead of waiting for its interval.

A task that is already mid-run is not started a second time; the command
fails with a conflict instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		path := "/api/v1/admin/scheduler/tasks/" + url.PathEscape(args[0]) + "/trigger"
		if _, err := client.Post(path, nil); err != nil {
			return err
		}
		fmt.Printf("task %s triggered\n", args[0])
		return nil
	},
}

func init() {
	schedulerCmd.AddCommand(schedulerTasksCmd)
	schedulerCmd.AddCommand(schedulerTriggerCmd)
}
