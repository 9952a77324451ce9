package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goatd/goatforge/src/goatforge/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past kernel builds",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded build jobs",
	RunE:  runHistoryList,
}

func init() {
	historyListCmd.Flags().String("status", "", "Only show builds with this status (pending, running, success, failed)")
	historyListCmd.Flags().String("kernel", "", "Only show builds for this kernel version")
	historyCmd.AddCommand(historyListCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	database, err := db.New(db.Config{Path: cfg.DB.Path})
	if err != nil {
		return err
	}
	defer database.Close()

	repo := db.NewBuildJobRepository(database)

	status, _ := cmd.Flags().GetString("status")
	kernel, _ := cmd.Flags().GetString("kernel")

	var jobs []db.BuildJob
	switch {
	case status != "":
		jobs, err = repo.ListByStatus(db.BuildJobStatus(status))
	case kernel != "":
		jobs, err = repo.ListByKernelVersion(kernel)
	default:
		jobs, err = repo.List()
	}
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println("no builds recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKERNEL\tSTATUS\tSTAGE\tCREATED\tDURATION")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID,
			job.KernelVersion,
			job.Status,
			stageOrDash(job),
			job.CreatedAt.Format(time.RFC3339),
			durationOrDash(job),
		)
	}
	return w.Flush()
}

func stageOrDash(job db.BuildJob) string {
	if job.Status == db.BuildStatusFailed && job.ErrorStage != "" {
		return string(job.ErrorStage)
	}
	if job.CurrentStage == "" {
		return "-"
	}
	return string(job.CurrentStage)
}

func durationOrDash(job db.BuildJob) string {
	if job.StartedAt == nil || job.CompletedAt == nil {
		return "-"
	}
	return job.CompletedAt.Sub(*job.StartedAt).Round(time.Second).String()
}
