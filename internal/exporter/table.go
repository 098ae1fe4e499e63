package exporter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/config"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/sheets"
)

// TableExporter exports the pending rows of one source table to one sheet tab.
// Each run is recorded as its own export job with the target sheet id.
type TableExporter struct {
	exportType domain.ExportType
	header     []interface{}
	target     config.SheetTarget
	store      Store
	sink       sheets.Sink
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a TableExporter
type Option func(*TableExporter)

// WithBatchSize limits how many rows are appended per sink call
func WithBatchSize(n int) Option {
	return func(e *TableExporter) { e.batchSize = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *TableExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *TableExporter) { e.now = now }
}

func newTableExporter(t domain.ExportType, header []interface{}, store Store, sink sheets.Sink, target config.SheetTarget, opts ...Option) *TableExporter {
	e := &TableExporter{
		exportType: t,
		header:     header,
		target:     target,
		store:      store,
		sink:       sink,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("export_type", string(t)), zap.String("sheet_id", target.SheetID))
	return e
}

// NewContactsExporter exports contact form submissions
func NewContactsExporter(store Store, sink sheets.Sink, target config.SheetTarget, opts ...Option) *TableExporter {
	return newTableExporter(domain.ExportContacts, domain.ContactHeader, store, sink, target, opts...)
}

// NewBookingsExporter exports private-space bookings
func NewBookingsExporter(store Store, sink sheets.Sink, target config.SheetTarget, opts ...Option) *TableExporter {
	return newTableExporter(domain.ExportBookings, domain.BookingHeader, store, sink, target, opts...)
}

// NewPaymentsExporter exports payments
func NewPaymentsExporter(store Store, sink sheets.Sink, target config.SheetTarget, opts ...Option) *TableExporter {
	return newTableExporter(domain.ExportPayments, domain.PaymentHeader, store, sink, target, opts...)
}

// NewClassesExporter exports class registrations
func NewClassesExporter(store Store, sink sheets.Sink, target config.SheetTarget, opts ...Option) *TableExporter {
	return newTableExporter(domain.ExportClasses, domain.ClassHeader, store, sink, target, opts...)
}

func (e *TableExporter) Type() domain.ExportType { return e.exportType }

// Export appends every pending row in batches and marks each batch exported
// once the sink accepted it. A failure keeps the rows of the failed batch pending.
func (e *TableExporter) Export(ctx context.Context) (domain.ExportResult, error) {
	jobID, err := e.store.CreateJob(ctx, domain.NewSheetJob(e.exportType, e.target.SheetID, e.now()))
	if err != nil {
		return domain.Failed(err), err
	}

	total := 0
	for {
		rows, err := e.store.PendingRows(ctx, e.exportType, e.batchSize)
		if err != nil {
			return e.fail(ctx, jobID, total, err)
		}
		if len(rows) == 0 {
			break
		}

		values := make([][]interface{}, len(rows))
		ids := make([]int64, len(rows))
		for i, row := range rows {
			values[i] = row.Row()
			ids[i] = row.RowID()
		}

		if err := e.sink.Append(ctx, e.target.SheetID, e.target.Tab, e.header, values); err != nil {
			return e.fail(ctx, jobID, total, err)
		}
		if err := e.store.MarkExported(ctx, e.exportType, ids, e.now()); err != nil {
			return e.fail(ctx, jobID, total, err)
		}
		total += len(rows)

		if e.batchSize <= 0 || len(rows) < e.batchSize {
			break
		}
	}

	if err := e.store.CompleteJob(ctx, jobID, total, e.now()); err != nil {
		e.logger.Warn("recording sheet export completion failed", zap.String("job_id", jobID), zap.Error(err))
	}
	e.logger.Debug("sheet export finished", zap.Int("rows", total))
	return domain.Exported(total), nil
}

func (e *TableExporter) fail(ctx context.Context, jobID string, exported int, cause error) (domain.ExportResult, error) {
	e.logger.Error("sheet export failed", zap.String("job_id", jobID), zap.Int("rows_before_failure", exported), zap.Error(cause))
	// the caller's context may be the reason for the failure
	if err := e.store.FailJob(context.WithoutCancel(ctx), jobID, cause.Error(), e.now()); err != nil {
		e.logger.Warn("recording sheet export failure failed", zap.String("job_id", jobID), zap.Error(err))
	}
	return domain.Failed(cause), cause
}
