package notify

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/rowcount"
)

// FromReport summarizes a finished batch. Any failed exporter makes it a warning.
func FromReport(r *batch.Report) Notification {
	var b strings.Builder
	results := r.Results()
	for _, t := range domain.SourceTypes {
		res := results[t]
		if res.Success {
			fmt.Fprintf(&b, "%s: %d rows\n", t, rowcount.FromResult(res))
			continue
		}
		reason := "unknown error"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		fmt.Fprintf(&b, "%s: failed (%s)\n", t, reason)
	}

	n := Notification{
		Title:   fmt.Sprintf("Batch export finished: %d rows", r.TotalExported),
		Message: strings.TrimSuffix(b.String(), "\n"),
		Type:    NotifySuccess,
		JobID:   r.JobID,
	}
	if failed := r.Failures(); len(failed) > 0 {
		n.Title = fmt.Sprintf("Batch export finished with %d failed sheet(s)", len(failed))
		n.Type = NotifyWarning
	}
	return n
}

// Listener turns Runner events into notifications: batch failure, partial
// failure, and success only when onComplete is set.
type Listener struct {
	notifier   Notifier
	onComplete bool
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewListener creates a Listener; pass its Handle method to Runner.Subscribe
func NewListener(n Notifier, onComplete bool, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{notifier: n, onComplete: onComplete, logger: logger}
}

// Handle sends the notification for ev, if any, in the background
func (l *Listener) Handle(ev batch.Event) {
	var note Notification
	switch ev.Type {
	case batch.EventCompleted:
		if ev.Report == nil {
			return
		}
		note = FromReport(ev.Report)
		if note.Type == NotifySuccess && !l.onComplete {
			return
		}
	case batch.EventFailed:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		note = Notification{Title: "Batch export failed", Message: msg, Type: NotifyError, JobID: ev.JobID}
	default:
		return
	}

	// listeners must not block the batch goroutine
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.notifier.Send(note); err != nil {
			l.logger.Warn("sending notification failed", zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight notifications have been sent
func (l *Listener) Wait() {
	l.wg.Wait()
}
