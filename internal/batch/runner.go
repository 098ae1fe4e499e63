package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exporter"
	"github.com/hochfrequenz/booking-export/internal/rowcount"
)

// JobStore records the aggregate batch job
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.ExportJob) (string, error)
	CompleteJob(ctx context.Context, id string, rows int, at time.Time) error
	FailJob(ctx context.Context, id string, message string, at time.Time) error
}

// Report is the outcome of one batch run
type Report struct {
	JobID         string
	Contacts      domain.ExportResult
	Bookings      domain.ExportResult
	Payments      domain.ExportResult
	Classes       domain.ExportResult
	Timestamp     time.Time
	TotalExported int
	Duration      time.Duration
}

// Results returns the per-type results keyed by export type
func (r *Report) Results() map[domain.ExportType]domain.ExportResult {
	return map[domain.ExportType]domain.ExportResult{
		domain.ExportContacts: r.Contacts,
		domain.ExportBookings: r.Bookings,
		domain.ExportPayments: r.Payments,
		domain.ExportClasses:  r.Classes,
	}
}

// Failures lists the export types whose exporter did not succeed, in reporting order
func (r *Report) Failures() []domain.ExportType {
	results := r.Results()
	var failed []domain.ExportType
	for _, t := range domain.SourceTypes {
		if !results[t].Success {
			failed = append(failed, t)
		}
	}
	return failed
}

// EventType identifies a batch lifecycle event
type EventType string

const (
	EventStarted   EventType = "export_started"
	EventCompleted EventType = "export_completed"
	EventFailed    EventType = "export_failed"
)

// Event is delivered to listeners as a batch progresses.
// Report is set on completion, Err on failure.
type Event struct {
	Type   EventType
	JobID  string
	Report *Report
	Err    error
	At     time.Time
}

// Runner is the batch export orchestrator. It runs every exporter
// concurrently and waits for all of them to settle; one exporter failing
// never cancels or alters the others.
type Runner struct {
	store       JobStore
	exporters   exporter.Set
	taskTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
	listeners   []func(Event)
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithTaskTimeout bounds each exporter; zero disables the bound
func WithTaskTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.taskTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates an orchestrator over the given exporters
func NewRunner(store JobStore, exporters exporter.Set, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:       store,
		exporters:   exporters,
		taskTimeout: DefaultTaskTimeout,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithTimeout returns a copy of the runner whose exporters are bounded by d.
// The copy shares listeners with r.
func (r *Runner) WithTimeout(d time.Duration) *Runner {
	c := *r
	c.taskTimeout = d
	return &c
}

// Subscribe registers fn to receive batch events. Listeners run synchronously
// on the batch goroutine and must not block. Not safe to call concurrently with Run.
func (r *Runner) Subscribe(fn func(Event)) {
	r.listeners = append(r.listeners, fn)
}

func (r *Runner) emit(ev Event) {
	ev.At = r.now()
	for _, fn := range r.listeners {
		fn(ev)
	}
}

// Run executes one batch: record a pending job, run all exporters, then
// complete the job with the summed row count. Exporter failures are part of
// the report. An error is returned only when bookkeeping fails; in that case
// the job is finalized as failed on a best-effort basis.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	start := r.now()

	jobID, err := r.store.CreateJob(ctx, domain.NewBatchJob(start))
	if err != nil {
		r.logger.Error("recording batch start failed", zap.Error(err))
		r.emit(Event{Type: EventFailed, Err: err})
		return nil, err
	}

	logger := r.logger.With(zap.String("job_id", jobID))
	logger.Info("batch export started")
	r.emit(Event{Type: EventStarted, JobID: jobID})

	// bookkeeping must land even if the caller went away mid-run
	bookkeeping := context.WithoutCancel(ctx)

	defer func() {
		if err == nil {
			return
		}
		logger.Error("batch export failed", zap.Error(err))
		if ferr := r.store.FailJob(bookkeeping, jobID, err.Error(), r.now()); ferr != nil {
			logger.Warn("finalizing failed batch record failed", zap.Error(ferr))
		}
		r.emit(Event{Type: EventFailed, JobID: jobID, Err: err})
	}()

	results := r.runAll(ctx)
	total := rowcount.Total(results...)

	finished := r.now()
	if err := r.store.CompleteJob(bookkeeping, jobID, total, finished); err != nil {
		return nil, err
	}

	report = &Report{
		JobID:         jobID,
		Contacts:      results[0],
		Bookings:      results[1],
		Payments:      results[2],
		Classes:       results[3],
		Timestamp:     finished,
		TotalExported: total,
		Duration:      finished.Sub(start),
	}

	logger.Info("batch export completed",
		zap.Int("total_exported", total),
		zap.Duration("duration", report.Duration),
		zap.Int("failed_tasks", len(report.Failures())))
	r.emit(Event{Type: EventCompleted, JobID: jobID, Report: report})

	return report, nil
}

func (r *Runner) runAll(ctx context.Context) []domain.ExportResult {
	all := r.exporters.All()
	results := make([]domain.ExportResult, len(all))

	// every branch returns nil, so Wait is a plain join over all of them
	var g errgroup.Group
	for i, exp := range all {
		g.Go(func() error {
			results[i] = r.runOne(ctx, exp)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type outcome struct {
	result domain.ExportResult
	err    error
}

// runOne converts every way an exporter can fail into a failure result:
// a returned error, a panic, or running past the task timeout.
func (r *Runner) runOne(ctx context.Context, exp exporter.Exporter) domain.ExportResult {
	if exp == nil {
		return domain.Failed(errors.New("exporter not configured"))
	}

	taskCtx := ctx
	if r.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, r.taskTimeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("%s exporter panicked: %v", exp.Type(), p)}
			}
		}()
		res, err := exp.Export(taskCtx)
		done <- outcome{result: res, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-taskCtx.Done():
		// an exporter that ignores its context is abandoned, not awaited
		o = outcome{err: taskCtx.Err()}
	}

	if o.err != nil {
		r.logger.Warn("export task failed", zap.String("export_type", string(exp.Type())), zap.Error(o.err))
		return domain.Failed(o.err)
	}
	return o.result
}
