package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
)

func TestSeed(t *testing.T) {
	store, err := exportstore.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, seed(context.Background(), store, 3, time.Now()))

	pending, err := store.CountPending(context.Background())
	require.NoError(t, err)
	for _, typ := range domain.SourceTypes {
		assert.Equal(t, 3, pending[typ], typ)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &batch.Report{
		JobID:         "job-1",
		Contacts:      domain.Exported(12),
		Bookings:      domain.Exported(0),
		Payments:      domain.Failed(errors.New("network down")),
		Classes:       domain.Exported(7),
		TotalExported: 19,
		Duration:      1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Batch job-1 finished in 1.5s")
	assert.Contains(t, out, "12 rows")
	assert.Contains(t, out, "failed: network down")
	assert.Contains(t, out, "Total exported: 19")
}

func TestPrintJobs(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	done := created.Add(2 * time.Second)

	var buf bytes.Buffer
	printJobs(&buf, []*domain.ExportJob{
		{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", ExportType: domain.ExportBatch, SheetID: "N/A",
			RowsExported: 19, Status: domain.JobCompleted, CreatedAt: created, CompletedAt: &done},
		{ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", ExportType: domain.ExportBatch, SheetID: "N/A",
			Status: domain.JobFailed, Error: "abandoned: no completion recorded", CreatedAt: created},
	})

	out := buf.String()
	assert.Contains(t, out, "0f8fad5b")
	assert.NotContains(t, out, "0f8fad5b-d9cb")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "abandoned: no completion recorded")
}
