package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/config"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
)

// timestampLayout matches JavaScript's Date.toISOString
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const defaultListLimit = 50

// FailureResponse is the error envelope of the cron endpoint
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ExportResults holds the per-exporter outcomes of one batch
type ExportResults struct {
	Contacts  domain.ExportResult `json:"contacts"`
	Bookings  domain.ExportResult `json:"bookings"`
	Payments  domain.ExportResult `json:"payments"`
	Classes   domain.ExportResult `json:"classes"`
	Timestamp string              `json:"timestamp"`
}

// ExportResponse is the 200 body of the cron endpoint
type ExportResponse struct {
	Success       bool          `json:"success"`
	Results       ExportResults `json:"results"`
	TotalExported int           `json:"totalExported"`
}

// JobResponse is the API response for an export job record
type JobResponse struct {
	ID           string  `json:"id"`
	ExportType   string  `json:"export_type"`
	SheetID      string  `json:"sheet_id"`
	RowsExported int     `json:"rows_exported"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	Duration     string  `json:"duration,omitempty"`
}

// StatusResponse is the API response for /api/status
type StatusResponse struct {
	LastBatch     *JobResponse `json:"last_batch,omitempty"`
	NextBatch     string       `json:"next_batch,omitempty"`
	NextScheduled *string      `json:"next_scheduled,omitempty"`
}

// EventResponse is the data payload of an SSE batch event
type EventResponse struct {
	JobID         string   `json:"job_id,omitempty"`
	TotalExported *int     `json:"total_exported,omitempty"`
	Failures      []string `json:"failures,omitempty"`
	Error         string   `json:"error,omitempty"`
	At            string   `json:"at"`
}

func reportToResponse(r *batch.Report) ExportResponse {
	return ExportResponse{
		Success: true,
		Results: ExportResults{
			Contacts:  r.Contacts,
			Bookings:  r.Bookings,
			Payments:  r.Payments,
			Classes:   r.Classes,
			Timestamp: r.Timestamp.UTC().Format(timestampLayout),
		},
		TotalExported: r.TotalExported,
	}
}

func jobToResponse(j *domain.ExportJob) JobResponse {
	resp := JobResponse{
		ID:           j.ID,
		ExportType:   string(j.ExportType),
		SheetID:      j.SheetID,
		RowsExported: j.RowsExported,
		Status:       string(j.Status),
		Error:        j.Error,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
	}
	if j.CompletedAt != nil {
		t := j.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
		resp.Duration = j.Duration().Round(time.Millisecond).String()
	}
	return resp
}

func eventToResponse(ev batch.Event) EventResponse {
	resp := EventResponse{
		JobID: ev.JobID,
		At:    ev.At.UTC().Format(timestampLayout),
	}
	if ev.Report != nil {
		total := ev.Report.TotalExported
		resp.TotalExported = &total
		for _, t := range ev.Report.Failures() {
			resp.Failures = append(resp.Failures, string(t))
		}
	}
	if ev.Err != nil {
		resp.Error = ev.Err.Error()
	}
	return resp
}

// cronExportHandler authenticates the scheduler and runs one batch
func (s *Server) cronExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		secret, err := s.secret()
		if err != nil || secret == "" {
			s.logger.Error("cron export rejected", zap.Error(config.ErrSecretNotConfigured))
			writeFailure(w, http.StatusInternalServerError, config.ErrSecretNotConfigured.Error())
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+secret {
			s.logger.Warn("cron export unauthorized", zap.String("remote", r.RemoteAddr))
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// a scheduler that hangs up must not abort a batch already under way
		report, err := s.runner.Run(context.WithoutCancel(r.Context()))
		if err != nil {
			s.logger.Error("batch export error", zap.Error(err))
			msg := err.Error()
			if msg == "" {
				msg = "Unknown error"
			}
			writeFailure(w, http.StatusInternalServerError, msg)
			return
		}

		writeJSON(w, reportToResponse(report))
	}
}

func (s *Server) listExportsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		opts := exportstore.ListOptions{Limit: defaultListLimit}
		q := r.URL.Query()

		if v := q.Get("type"); v != "" {
			t, err := domain.ParseExportType(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			opts.ExportType = t
		}
		if v := q.Get("status"); v != "" {
			st, err := domain.ParseJobStatus(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			opts.Status = st
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			opts.Limit = n
		}

		jobs, err := s.store.ListJobs(r.Context(), opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := make([]JobResponse, len(jobs))
		for i, j := range jobs {
			resp[i] = jobToResponse(j)
		}

		writeJSON(w, resp)
	}
}

func (s *Server) getExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		// Extract job ID from path: /api/exports/{id}
		id := strings.TrimPrefix(r.URL.Path, "/api/exports/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, http.StatusBadRequest, "job ID required")
			return
		}

		job, err := s.store.GetJob(r.Context(), id)
		if errors.Is(err, exportstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, jobToResponse(job))
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var status StatusResponse

		last, err := s.store.LatestJob(r.Context(), domain.ExportBatch)
		switch {
		case errors.Is(err, exportstore.ErrNotFound):
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		default:
			resp := jobToResponse(last)
			status.LastBatch = &resp
		}

		if s.scheduler != nil {
			if name, next := s.scheduler.NextAny(); !next.IsZero() {
				t := next.Format(time.RFC3339)
				status.NextBatch = name
				status.NextScheduled = &t
			}
		}

		writeJSON(w, status)
	}
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
