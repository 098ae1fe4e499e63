package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var (
	historyType   string
	historyStatus string
	historyLimit  int
	repairType    string
	repairAge     time.Duration
)

func init() {
	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded export jobs",
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&historyType, "type", "", "filter by export type (batch, contacts, bookings, payments, classes)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (pending, completed, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of jobs")
	rootCmd.AddCommand(historyCmd)

	// repair command
	repairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Mark jobs left pending by crashed runs as failed",
		RunE:  runRepair,
	}
	repairCmd.Flags().StringVar(&repairType, "type", string(domain.ExportBatch), "export type to repair")
	repairCmd.Flags().DurationVar(&repairAge, "older-than", time.Hour, "only jobs created before this age")
	rootCmd.AddCommand(repairCmd)
}

func statusStyle(s domain.JobStatus) lipgloss.Style {
	switch s {
	case domain.JobCompleted:
		return okStyle
	case domain.JobFailed:
		return failStyle
	default:
		return pendingStyle
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	opts := exportstore.ListOptions{Limit: historyLimit}
	if historyType != "" {
		t, err := domain.ParseExportType(historyType)
		if err != nil {
			return err
		}
		opts.ExportType = t
	}
	if historyStatus != "" {
		st, err := domain.ParseJobStatus(historyStatus)
		if err != nil {
			return err
		}
		opts.Status = st
	}

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.ListJobs(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No export jobs recorded")
		return nil
	}

	printJobs(cmd.OutOrStdout(), jobs)
	return nil
}

func printJobs(out io.Writer, jobs []*domain.ExportJob) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSHEET\tSTATUS\tROWS\tCREATED\tDURATION\tERROR")

	for _, j := range jobs {
		id := j.ID
		if len(id) > 8 {
			id = id[:8]
		}
		duration := "-"
		if j.CompletedAt != nil {
			duration = j.Duration().Round(time.Millisecond).String()
		}
		// pad before styling; escape codes confuse tabwriter widths
		status := statusStyle(j.Status).Render(fmt.Sprintf("%-9s", j.Status))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			id, j.ExportType, j.SheetID, status, j.RowsExported,
			j.CreatedAt.Local().Format("2006-01-02 15:04:05"), duration, j.Error)
	}
	w.Flush()
}

func runRepair(cmd *cobra.Command, args []string) error {
	t, err := domain.ParseExportType(repairType)
	if err != nil {
		return err
	}

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	n, err := store.FailStalePending(cmd.Context(), t, now.Add(-repairAge), "abandoned: no completion recorded", now)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Marked %d pending %s job(s) as failed\n", n, t)
	return nil
}
