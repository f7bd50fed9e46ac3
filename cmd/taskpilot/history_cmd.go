package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskpilot/internal/audit"
	"taskpilot/internal/config"
	"taskpilot/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past task runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tasks",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show the full trail of one task",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLimit int

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of tasks to list")
}

func openAudit() (*audit.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return audit.New(cfg.AuditDBPath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.ListTasks(historyLimit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tITER\tSTARTED\tDESCRIPTION")
	for _, t := range tasks {
		desc := t.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			t.ID, t.Status, t.Iterations, t.CreatedAt.Local().Format(time.DateTime), desc)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openAudit()
	if err != nil {
		return err
	}
	defer store.Close()

	task, err := store.GetTask(args[0])
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task not found: %s", args[0])
	}

	entries, err := store.EntriesForTask(task.ID)
	if err != nil {
		return err
	}

	fmt.Println(report.Render(report.Build(task, entries)))
	return nil
}
