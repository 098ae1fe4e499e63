package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers configured batches on their cron schedule.
// A batch never overlaps with itself; distinct batches may overlap.
type Scheduler struct {
	configs  map[string]BatchConfig
	parser   cron.Parser
	lastRun  map[string]time.Time
	running  map[string]bool
	logger   *zap.Logger
	tick     time.Duration
	mu       sync.RWMutex
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewScheduler creates a new batch scheduler
func NewScheduler(configs []BatchConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		configs:  make(map[string]BatchConfig),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
		logger:   logger,
		tick:     time.Minute,
		stopChan: make(chan struct{}),
	}

	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		s.configs[cfg.Name] = cfg
	}

	return s, nil
}

// Reload replaces the configured batches. Run history is kept for batches
// whose name survives; a batch already running finishes normally.
func (s *Scheduler) Reload(configs []BatchConfig) error {
	next := make(map[string]BatchConfig, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return err
		}
		next[cfg.Name] = cfg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.lastRun {
		if _, ok := next[name]; !ok {
			delete(s.lastRun, name)
		}
	}
	s.configs = next
	return nil
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next scheduled run time for a batch
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// NextAny returns the earliest upcoming run across all batches
func (s *Scheduler) NextAny() (string, time.Time) {
	var name string
	var next time.Time
	for _, n := range s.ListBatches() {
		t := s.NextRun(n)
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			name, next = n, t
		}
	}
	return name, next
}

// ShouldRun returns true if a batch should run now
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[name]
	if !ok {
		return false
	}

	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	nextRun := sched.Next(lastRun)
	return time.Now().After(nextRun)
}

// MarkRunning marks a batch as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks a batch as complete
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// GetConfig returns the config for a batch
func (s *Scheduler) GetConfig(name string) (BatchConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[name]
	return cfg, ok
}

// ListBatches returns all batch names, sorted
func (s *Scheduler) ListBatches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs the scheduler loop until ctx is done or Stop is called.
// Due batches are started in their own goroutine.
func (s *Scheduler) Start(ctx context.Context, runFunc func(context.Context, BatchConfig) error) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			for _, name := range s.ListBatches() {
				if !s.ShouldRun(name) {
					continue
				}
				cfg, _ := s.GetConfig(name)
				s.MarkRunning(name)
				wg.Add(1)
				go func(c BatchConfig) {
					defer wg.Done()
					defer s.MarkComplete(c.Name)
					s.logger.Info("scheduled batch starting", zap.String("batch", c.Name))
					if err := runFunc(ctx, c); err != nil {
						s.logger.Error("scheduled batch failed", zap.String("batch", c.Name), zap.Error(err))
					}
				}(cfg)
			}
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
