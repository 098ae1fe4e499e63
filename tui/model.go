package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
)

// Tabs
const (
	TabBatches = iota
	TabSheets
	tabCount
)

// Source is the read side of the store the dashboard polls
type Source interface {
	ListJobs(ctx context.Context, opts exportstore.ListOptions) ([]*domain.ExportJob, error)
	CountPending(ctx context.Context) (map[domain.ExportType]int, error)
}

// Model is the TUI application model
type Model struct {
	source   Source
	interval time.Duration
	limit    int

	// Data
	batches []*domain.ExportJob
	sheets  []*domain.ExportJob
	pending map[domain.ExportType]int
	err     error

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int

	lastRefresh time.Time
}

// ModelConfig holds the dashboard's dependencies
type ModelConfig struct {
	Source   Source
	Interval time.Duration
	Limit    int
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	return Model{
		source:   cfg.Source,
		interval: cfg.Interval,
		limit:    cfg.Limit,
		pending:  make(map[domain.ExportType]int),
	}
}

// Init loads the first snapshot and starts polling
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		m.tickCmd(),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

// DataMsg carries a fresh snapshot from the store
type DataMsg struct {
	Batches []*domain.ExportJob
	Sheets  []*domain.ExportJob
	Pending map[domain.ExportType]int
	Err     error
	At      time.Time
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	source, limit := m.source, m.limit
	return func() tea.Msg {
		return load(context.Background(), source, limit)
	}
}

func load(ctx context.Context, source Source, limit int) DataMsg {
	msg := DataMsg{At: time.Now()}

	all, err := source.ListJobs(ctx, exportstore.ListOptions{Limit: limit * 5})
	if err != nil {
		msg.Err = err
		return msg
	}
	for _, j := range all {
		if j.ExportType == domain.ExportBatch {
			if len(msg.Batches) < limit {
				msg.Batches = append(msg.Batches, j)
			}
		} else if len(msg.Sheets) < limit {
			msg.Sheets = append(msg.Sheets, j)
		}
	}

	msg.Pending, msg.Err = source.CountPending(ctx)
	return msg
}
