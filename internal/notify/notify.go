package notify

import (
	"errors"

	"go.uber.org/zap"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	JobID   string // Optional export job reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// New returns the notifier for a deployment: batch summaries always go to
// the log, and to Slack as well when a webhook is configured.
func New(slackWebhook string, logger *zap.Logger) *MultiNotifier {
	notifiers := []Notifier{NewLogNotifier(logger)}
	if slackWebhook != "" {
		notifiers = append(notifiers, NewSlackNotifier(slackWebhook))
	}
	return NewMultiNotifier(notifiers...)
}

// MultiNotifier delivers to every notifier, even after one fails
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send returns the joined errors of all failed deliveries
func (m *MultiNotifier) Send(n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to a zap logger, at warn level for
// warnings and errors
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(n Notification) error {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
	if n.JobID != "" {
		fields = append(fields, zap.String("job_id", n.JobID))
	}
	switch n.Type {
	case NotifyWarning, NotifyError:
		l.logger.Warn("batch notification", fields...)
	default:
		l.logger.Info("batch notification", fields...)
	}
	return nil
}
