package domain

import "fmt"

// ExportType discriminates export job records
type ExportType string

const (
	ExportBatch    ExportType = "batch"
	ExportContacts ExportType = "contacts"
	ExportBookings ExportType = "bookings"
	ExportPayments ExportType = "payments"
	ExportClasses  ExportType = "classes"
)

// SourceTypes lists the per-sheet export types in the order they are reported
var SourceTypes = []ExportType{ExportContacts, ExportBookings, ExportPayments, ExportClasses}

// ParseExportType validates s as a known export type
func ParseExportType(s string) (ExportType, error) {
	switch t := ExportType(s); t {
	case ExportBatch, ExportContacts, ExportBookings, ExportPayments, ExportClasses:
		return t, nil
	}
	return "", fmt.Errorf("unknown export type: %q", s)
}

// JobStatus represents the lifecycle state of an export job record
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ParseJobStatus validates s as a known job status
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobPending, JobCompleted, JobFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status: %q", s)
}

// Terminal reports whether no further transition is expected
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}
