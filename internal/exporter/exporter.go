// Package exporter moves never-exported source records into spreadsheet tabs.
package exporter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/config"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/sheets"
)

// Exporter transfers one category of records to its sink and reports the outcome
type Exporter interface {
	Type() domain.ExportType
	Export(ctx context.Context) (domain.ExportResult, error)
}

// Store is the persistence an exporter needs
type Store interface {
	PendingRows(ctx context.Context, t domain.ExportType, limit int) ([]domain.SheetRow, error)
	MarkExported(ctx context.Context, t domain.ExportType, ids []int64, at time.Time) error
	CreateJob(ctx context.Context, job *domain.ExportJob) (string, error)
	CompleteJob(ctx context.Context, id string, rows int, at time.Time) error
	FailJob(ctx context.Context, id string, message string, at time.Time) error
}

// Func adapts a function to the Exporter interface
type Func struct {
	ExportType domain.ExportType
	Fn         func(ctx context.Context) (domain.ExportResult, error)
}

func (f Func) Type() domain.ExportType { return f.ExportType }

func (f Func) Export(ctx context.Context) (domain.ExportResult, error) { return f.Fn(ctx) }

// Set holds the four exporters the batch orchestrator runs
type Set struct {
	Contacts Exporter
	Bookings Exporter
	Payments Exporter
	Classes  Exporter
}

// All returns the exporters in reporting order
func (s Set) All() []Exporter {
	return []Exporter{s.Contacts, s.Bookings, s.Payments, s.Classes}
}

// NewSet wires a TableExporter per category against one store and sink
func NewSet(store Store, sink sheets.Sink, cfg config.SheetsConfig, batchSize int, logger *zap.Logger) Set {
	opts := []Option{WithBatchSize(batchSize), WithLogger(logger)}
	return Set{
		Contacts: NewContactsExporter(store, sink, cfg.Contacts, opts...),
		Bookings: NewBookingsExporter(store, sink, cfg.Bookings, opts...),
		Payments: NewPaymentsExporter(store, sink, cfg.Payments, opts...),
		Classes:  NewClassesExporter(store, sink, cfg.Classes, opts...),
	}
}
