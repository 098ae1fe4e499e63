package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/booking-export/internal/config"
)

// BatchConfig represents a scheduled export batch
type BatchConfig struct {
	Name             string          `toml:"name"`
	Cron             string          `toml:"cron"`
	TaskTimeout      config.Duration `toml:"task_timeout"`
	NotifyOnComplete bool            `toml:"notify_on_complete"`
}

// ScheduleConfig holds all batch configurations
type ScheduleConfig struct {
	Batches []BatchConfig `toml:"batch"`
}

// Validate checks if the config is valid
func (c *BatchConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("batch name is required")
	}
	if c.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(c.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if c.TaskTimeout < 0 {
		return fmt.Errorf("task_timeout must not be negative")
	}
	return nil
}

// Runner returns base bounded by the batch's own task timeout, or base
// itself when the batch leaves task_timeout unset.
func (c BatchConfig) Runner(base *Runner) *Runner {
	if c.TaskTimeout <= 0 {
		return base
	}
	return base.WithTimeout(c.TaskTimeout.Std())
}

// DefaultTaskTimeout bounds a single exporter when nothing else is configured
const DefaultTaskTimeout = 2 * time.Minute

// LoadScheduleConfig loads batch configuration from a TOML file
func LoadScheduleConfig(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ScheduleConfig{}, nil
		}
		return nil, err
	}

	var cfg ScheduleConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Validate all batches
	for i := range cfg.Batches {
		if err := cfg.Batches[i].Validate(); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
	}

	return &cfg, nil
}
