package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
	"github.com/hochfrequenz/booking-export/internal/metrics"
)

// Store is the read side of the job store used by the history endpoints
type Store interface {
	Ping(ctx context.Context) error
	GetJob(ctx context.Context, id string) (*domain.ExportJob, error)
	ListJobs(ctx context.Context, opts exportstore.ListOptions) ([]*domain.ExportJob, error)
	LatestJob(ctx context.Context, exportType domain.ExportType) (*domain.ExportJob, error)
}

// BatchRunner runs one batch export
type BatchRunner interface {
	Run(ctx context.Context) (*batch.Report, error)
}

// SecretFunc returns the cron secret, or an error when none is configured
type SecretFunc func() (string, error)

// Server is the HTTP API server
type Server struct {
	store     Store
	runner    BatchRunner
	secret    SecretFunc
	scheduler *batch.Scheduler
	metrics   *metrics.Metrics
	logger    *zap.Logger
	addr      string
	mux       *http.ServeMux
	sseHub    *SSEHub
}

// Option configures a Server
type Option func(*Server)

// WithScheduler exposes the next scheduled run on /api/status
func WithScheduler(s *batch.Scheduler) Option {
	return func(srv *Server) { srv.scheduler = s }
}

// WithMetrics serves m on /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

// NewServer creates a new API server
func NewServer(store Store, runner BatchRunner, secret SecretFunc, addr string, opts ...Option) *Server {
	s := &Server{
		store:  store,
		runner: runner,
		secret: secret,
		logger: zap.NewNop(),
		addr:   addr,
		mux:    http.NewServeMux(),
		sseHub: NewSSEHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/cron/export", s.cronExportHandler())
	s.mux.HandleFunc("/api/exports", s.listExportsHandler())
	s.mux.HandleFunc("/api/exports/", s.getExportHandler())
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())
	s.mux.HandleFunc("/healthz", s.healthHandler())

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
}

// Handler returns the routed handler with logging and recovery applied
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(s.logRequests(s.mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.sseHub.Run(hubCtx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// SSE streams only end when the hub stops
	stopHub()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

// OnBatchEvent forwards runner events to SSE clients
func (s *Server) OnBatchEvent(ev batch.Event) {
	s.Broadcast(SSEEvent{Type: string(ev.Type), Data: eventToResponse(ev)})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}

// writeFailure uses the envelope the cron endpoint answers with
func writeFailure(w http.ResponseWriter, code int, message string) {
	writeJSONStatus(w, code, FailureResponse{Success: false, Error: message})
}
