package exportstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/booking-export/internal/domain"
)

// ErrNotFound is returned when no record matches
var ErrNotFound = errors.New("not found")

// Store provides SQLite-backed export bookkeeping and source records
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer, and every ":memory:" connection is its own database
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateJob inserts a job record and returns its primary key.
// A uuid is assigned when job.ID is empty.
func (s *Store) CreateJob(ctx context.Context, job *domain.ExportJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = domain.JobPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, export_type, sheet_id, rows_exported, status, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		string(job.ExportType),
		job.SheetID,
		job.RowsExported,
		string(job.Status),
		nullString(job.Error),
		job.CreatedAt.UTC(),
		utcPtr(job.CompletedAt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting export job: %w", err)
	}
	return job.ID, nil
}

// CompleteJob marks a pending job completed with the exported row count
func (s *Store) CompleteJob(ctx context.Context, id string, rows int, at time.Time) error {
	return s.finishJob(ctx, id, `UPDATE export_jobs SET status = ?, rows_exported = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(domain.JobCompleted), rows, at.UTC(), id, string(domain.JobPending))
}

// FailJob marks a pending job failed with an error message
func (s *Store) FailJob(ctx context.Context, id string, message string, at time.Time) error {
	return s.finishJob(ctx, id, `UPDATE export_jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(domain.JobFailed), message, at.UTC(), id, string(domain.JobPending))
}

func (s *Store) finishJob(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating export job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("pending export job %s: %w", id, ErrNotFound)
	}
	return nil
}

// FailStalePending marks pending jobs of the given type created before cutoff as failed.
// It finalizes records left behind by runs that crashed before their completion write.
func (s *Store) FailStalePending(ctx context.Context, exportType domain.ExportType, cutoff time.Time, message string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = ?, error = ?, completed_at = ?
		WHERE export_type = ? AND status = ? AND completed_at IS NULL AND created_at < ?
	`, string(domain.JobFailed), message, at.UTC(), string(exportType), string(domain.JobPending), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(ctx context.Context, id string) (*domain.ExportJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, export_type, sheet_id, rows_exported, status, error, created_at, completed_at
		FROM export_jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListOptions specifies filters for listing jobs
type ListOptions struct {
	ExportType domain.ExportType
	Status     domain.JobStatus
	Limit      int
}

// ListJobs returns jobs matching the given options, newest first
func (s *Store) ListJobs(ctx context.Context, opts ListOptions) ([]*domain.ExportJob, error) {
	query := `SELECT id, export_type, sheet_id, rows_exported, status, error, created_at, completed_at FROM export_jobs WHERE 1=1`
	var args []interface{}

	if opts.ExportType != "" {
		query += " AND export_type = ?"
		args = append(args, string(opts.ExportType))
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// LatestJob returns the most recent job of the given type
func (s *Store) LatestJob(ctx context.Context, exportType domain.ExportType) (*domain.ExportJob, error) {
	jobs, err := s.ListJobs(ctx, ListOptions{ExportType: exportType, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs[0], nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*domain.ExportJob, error) {
	var job domain.ExportJob
	var exportType, status string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&job.ID, &exportType, &job.SheetID, &job.RowsExported, &status, &errMsg, &job.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.ExportType = domain.ExportType(exportType)
	job.Status = domain.JobStatus(status)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
