package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AggregateSheetID is the sheet id stored on batch records, which span several sheets
const AggregateSheetID = "N/A"

// ExportJob is a persisted bookkeeping row for one export run
type ExportJob struct {
	ID           string
	ExportType   ExportType
	SheetID      string
	RowsExported int
	Status       JobStatus
	Error        string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// NewBatchJob returns the pending aggregate record for one orchestrator invocation
func NewBatchJob(now time.Time) *ExportJob {
	return &ExportJob{
		ExportType: ExportBatch,
		SheetID:    AggregateSheetID,
		Status:     JobPending,
		CreatedAt:  now,
	}
}

// NewSheetJob returns a pending record for a single sheet export
func NewSheetJob(t ExportType, sheetID string, now time.Time) *ExportJob {
	return &ExportJob{
		ExportType: t,
		SheetID:    sheetID,
		Status:     JobPending,
		CreatedAt:  now,
	}
}

// Duration returns how long the job ran, or zero while it is pending
func (j *ExportJob) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.CreatedAt)
}

// ExportResult is the outcome reported by a single exporter
type ExportResult struct {
	Success      bool
	Message      string
	Err          error
	RowsExported *int
}

// Exported returns a successful result for n rows
func Exported(n int) ExportResult {
	return ExportResult{
		Success:      true,
		Message:      fmt.Sprintf("Exported %d rows", n),
		RowsExported: &n,
	}
}

// Failed returns an unsuccessful result carrying err
func Failed(err error) ExportResult {
	return ExportResult{Success: false, Err: err}
}

type exportResultJSON struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	RowsExported *int   `json:"rowsExported,omitempty"`
}

// MarshalJSON renders the captured error as its message
func (r ExportResult) MarshalJSON() ([]byte, error) {
	out := exportResultJSON{
		Success:      r.Success,
		Message:      r.Message,
		RowsExported: r.RowsExported,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the error message as an opaque error
func (r *ExportResult) UnmarshalJSON(data []byte) error {
	var in exportResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ExportResult{
		Success:      in.Success,
		Message:      in.Message,
		RowsExported: in.RowsExported,
	}
	if in.Error != "" {
		r.Err = errors.New(in.Error)
	}
	return nil
}
