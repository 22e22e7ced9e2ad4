package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagFailedPage    int
	flagFailedPerPage int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and control job queues",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a snapshot of every queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		data, err := client.Get("/api/v1/admin/queues")
		if err != nil {
			return err
		}

		var stats []QueueStatsResponse
		if err := unmarshal(data, &stats); err != nil {
			return err
		}

		render(stats, func() {
			rows := make([][]string, 0, len(stats))
			for _, q := range stats {
				rows = append(rows, []string{
					q.Queue,
					strconv.Itoa(q.Pending),
					strconv.Itoa(q.Active),
					strconv.Itoa(q.Scheduled),
					strconv.Itoa(q.Retry),
					strconv.Itoa(q.Archived),
					yesNo(q.Paused),
				})
			}
			printTable([]string{"QUEUE", "PENDING", "ACTIVE", "SCHEDULED", "RETRY", "ARCHIVED", "PAUSED"}, rows)
		})
		return nil
	},
}

var queuePauseCmd = &cobra.Command{
	Use:   "pause <queue>",
	Short: "Pause task processing for a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		if _, err := client.Post("/api/v1/admin/queues/"+url.PathEscape(args[0])+"/pause", nil); err != nil {
			return err
		}
		fmt.Printf("queue %s paused\n", args[0])
		return nil
	},
}

var queueResumeCmd = &cobra.Command{
	Use:   "resume <queue>",
	Short: "Resume task processing for a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		if _, err := client.Post("/api/v1/admin/queues/"+url.PathEscape(args[0])+"/resume", nil); err != nil {
			return err
		}
		fmt.Printf("queue %s resumed\n", args[0])
		return nil
	},
}

var queueFailedCmd = &cobra.Command{
	Use:   "failed <queue>",
	Short: "List archived tasks that exhausted their retries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		path := fmt.Sprintf("/api/v1/admin/queues/%s/failed?page=%d&per_page=%d",
			url.PathEscape(args[0]), flagFailedPage, flagFailedPerPage)
		data, err := client.Get(path)
		if err != nil {
			return err
		}

		var tasks []FailedTaskResponse
		if err := unmarshal(data, &tasks); err != nil {
			return err
		}

		render(tasks, func() {
			if len(tasks) == 0 {
				fmt.Println("No failed tasks.")
				return
			}
			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				rows = append(rows, []string{
					task.ID,
					task.Type,
					fmt.Sprintf("%d/%d", task.Retried, task.MaxRetry),
					localTime(task.LastFailed),
					truncate(task.LastErr, 60),
				})
			}
			printTable([]string{"ID", "TYPE", "RETRIED", "LAST FAILED", "LAST ERROR"}, rows)
		})
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry <queue> <task-id>",
	Short: "Requeue one archived task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		path := fmt.Sprintf("/api/v1/admin/queues/%s/failed/%s/retry",
			url.PathEscape(args[0]), url.PathEscape(args[1]))
		if _, err := client.Post(path, nil); err != nil {
			return err
		}
		fmt.Printf("task %s requeued\n", args[1])
		return nil
	},
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge <queue>",
	Short: "Delete every archived task in a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := mustClient()
		data, err := client.Delete("/api/v1/admin/queues/" + url.PathEscape(args[0]) + "/failed")
		if err != nil {
			return err
		}

		var resp struct {
			Purged int `json:"purged"`
		}
		if err := unmarshal(data, &resp); err != nil {
			return err
		}
		fmt.Printf("purged %d tasks from %s\n", resp.Purged, args[0])
		return nil
	},
}

func init() {
	queueFailedCmd.Flags().IntVar(&flagFailedPage, "page", 1, "Page number")
	queueFailedCmd.Flags().IntVar(&flagFailedPerPage, "per-page", 20, "Results per page")

	queueCmd.AddCommand(queueStatsCmd)
	queueCmd.AddCommand(queuePauseCmd)
	queueCmd.AddCommand(queueResumeCmd)
	queueCmd.AddCommand(queueFailedCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queuePurgeCmd)
}
