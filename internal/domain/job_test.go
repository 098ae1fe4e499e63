package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewBatchJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	job := NewBatchJob(now)

	if job.ExportType != ExportBatch {
		t.Errorf("ExportType = %q, want batch", job.ExportType)
	}
	if job.SheetID != "N/A" {
		t.Errorf("SheetID = %q, want N/A", job.SheetID)
	}
	if job.Status != JobPending {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if job.RowsExported != 0 {
		t.Errorf("RowsExported = %d, want 0", job.RowsExported)
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt should be nil for a new job")
	}
	if job.Duration() != 0 {
		t.Errorf("Duration = %v, want 0 while pending", job.Duration())
	}
}

func TestExportResult_MarshalFailure(t *testing.T) {
	data, err := json.Marshal(Failed(errors.New("network down")))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"success":false,"error":"network down"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestExportResult_MarshalExported(t *testing.T) {
	data, err := json.Marshal(Exported(12))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"success":true,"message":"Exported 12 rows","rowsExported":12}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestExportResult_UnmarshalKeepsError(t *testing.T) {
	var r ExportResult
	if err := json.Unmarshal([]byte(`{"success":false,"error":"quota exceeded"}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.Success {
		t.Error("Success should be false")
	}
	if r.Err == nil || r.Err.Error() != "quota exceeded" {
		t.Errorf("Err = %v, want quota exceeded", r.Err)
	}
}

func TestParseExportType(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"batch", false},
		{"contacts", false},
		{"classes", false},
		{"orders", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := ParseExportType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExportType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	if JobPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Error("completed and failed should be terminal")
	}
}
