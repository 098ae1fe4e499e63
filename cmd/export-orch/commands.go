package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/notify"
	"github.com/hochfrequenz/booking-export/internal/rowcount"
	"github.com/hochfrequenz/booking-export/web/api"
)

var (
	servePort      int
	serveNoSched   bool
	runJSON        bool
	triggerURL     string
	triggerTimeout time.Duration
)

func init() {
	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the configured schedule",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoSched, "no-schedule", false, "only serve the API, never export on a timer")
	rootCmd.AddCommand(serveCmd)

	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch export now",
		RunE:  runBatch,
	}
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(runCmd)

	// trigger command
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Ask a running server to export, as an external scheduler would",
		RunE:  runTrigger,
	}
	triggerCmd.Flags().StringVar(&triggerURL, "url", "", "server base URL (default from config)")
	triggerCmd.Flags().DurationVar(&triggerTimeout, "timeout", 10*time.Minute, "request timeout")
	rootCmd.AddCommand(triggerCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != 0 {
		a.cfg.Web.Port = servePort
	}

	opts := []api.Option{api.WithMetrics(a.metrics), api.WithLogger(a.logger)}

	var sched *batch.Scheduler
	if !serveNoSched && a.cfg.General.SchedulePath != "" {
		schedCfg, err := batch.LoadScheduleConfig(a.cfg.General.SchedulePath)
		if err != nil {
			return fmt.Errorf("loading schedule: %w", err)
		}
		sched, err = batch.NewScheduler(schedCfg.Batches, a.logger)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithScheduler(sched))
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Web.Host, a.cfg.Web.Port)
	server := api.NewServer(a.store, a.runner, a.cfg.CronSecret, addr, opts...)
	a.runner.Subscribe(server.OnBatchEvent)

	if _, err := a.cfg.CronSecret(); err != nil {
		a.logger.Warn("cron secret is not configured; /api/cron/export will answer 500")
	}

	if sched != nil {
		schedDone := make(chan struct{})
		go func() {
			defer close(schedDone)
			sched.Start(ctx, a.runScheduled)
		}()
		// in-flight batches finish before the store closes
		defer func() {
			sched.Stop()
			<-schedDone
		}()
		a.logger.Info("schedule loaded", zap.Strings("batches", sched.ListBatches()))

		watcher, err := batch.NewScheduleWatcher(a.cfg.General.SchedulePath, func(c *batch.ScheduleConfig) {
			if err := sched.Reload(c.Batches); err != nil {
				a.logger.Error("applying schedule failed", zap.Error(err))
			}
		}, a.logger)
		if err != nil {
			a.logger.Warn("schedule hot reload disabled", zap.Error(err))
		} else {
			watchCtx, stopWatch := context.WithCancel(ctx)
			watchDone := make(chan struct{})
			go func() {
				defer close(watchDone)
				watcher.Run(watchCtx)
			}()
			defer func() {
				stopWatch()
				<-watchDone
			}()
		}
	}

	return server.Start(ctx)
}

// runScheduled runs one batch for the scheduler, using the batch's own
// timeout when it sets one and export.task_timeout otherwise
func (a *app) runScheduled(ctx context.Context, bc batch.BatchConfig) error {
	report, err := bc.Runner(a.runner).Run(ctx)
	if err != nil {
		return err
	}
	// failures are already reported by the listener
	if bc.NotifyOnComplete && !a.cfg.Notifications.NotifyOnComplete && len(report.Failures()) == 0 {
		if err := a.notifier.Send(notify.FromReport(report)); err != nil {
			a.logger.Warn("sending notification failed", zap.Error(err))
		}
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.runner.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(out, report)
	return nil
}

func printReport(w io.Writer, r *batch.Report) {
	if r.JobID != "" {
		fmt.Fprintf(w, "Batch %s finished in %s\n", r.JobID, r.Duration.Round(time.Millisecond))
	}
	results := r.Results()
	for _, t := range domain.SourceTypes {
		res := results[t]
		if res.Success {
			fmt.Fprintf(w, "  %-9s %s\n", t, okStyle.Render(fmt.Sprintf("%d rows", rowcount.FromResult(res))))
			continue
		}
		reason := "unknown error"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		fmt.Fprintf(w, "  %-9s %s\n", t, failStyle.Render("failed: "+reason))
	}
	fmt.Fprintf(w, "Total exported: %d\n", r.TotalExported)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	secret, err := cfg.CronSecret()
	if err != nil {
		return err
	}

	base := triggerURL
	if base == "" {
		base = cfg.BaseURL()
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, triggerTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/cron/export", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling export endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure api.FailureResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			return fmt.Errorf("export endpoint returned %d", resp.StatusCode)
		}
		return fmt.Errorf("export endpoint returned %d: %s", resp.StatusCode, failure.Error)
	}

	var body api.ExportResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	report := &batch.Report{
		Contacts:      body.Results.Contacts,
		Bookings:      body.Results.Bookings,
		Payments:      body.Results.Payments,
		Classes:       body.Results.Classes,
		TotalExported: body.TotalExported,
	}
	if ts, err := time.Parse(time.RFC3339Nano, body.Results.Timestamp); err == nil {
		report.Timestamp = ts
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}
