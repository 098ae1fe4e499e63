package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/booking-export/internal/config"
	"github.com/hochfrequenz/booking-export/internal/exporter"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 3 * * *", false},    // nightly
		{"*/15 * * * *", false}, // every 15 minutes
		{"0 6 * * 1-5", false},  // weekday mornings
		{"invalid", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestBatchConfig_Validate(t *testing.T) {
	cfg := BatchConfig{
		Name: "nightly",
		Cron: "0 3 * * *",
	}

	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.TaskTimeout, "unset timeout stays unset")

	cfg.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Empty name should error")
	}

	cfg = BatchConfig{Name: "x", Cron: "61 * * * *"}
	assert.Error(t, cfg.Validate())
}

func TestLoadScheduleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.toml")
	content := `
[[batch]]
name = "nightly"
cron = "0 3 * * *"
task_timeout = "5m"
notify_on_complete = true

[[batch]]
name = "hourly-contacts"
cron = "0 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadScheduleConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Batches, 2)
	assert.Equal(t, 5*time.Minute, cfg.Batches[0].TaskTimeout.Std())
	assert.True(t, cfg.Batches[0].NotifyOnComplete)
	assert.Zero(t, cfg.Batches[1].TaskTimeout)
}

func TestBatchConfig_Runner(t *testing.T) {
	base := NewRunner(nil, exporter.Set{}, WithTaskTimeout(45*time.Second))

	tests := []struct {
		name string
		cfg  BatchConfig
		want time.Duration
	}{
		{"unset inherits export.task_timeout", BatchConfig{Name: "nightly", Cron: "0 3 * * *"}, 45 * time.Second},
		{"own timeout wins", BatchConfig{Name: "nightly", Cron: "0 3 * * *", TaskTimeout: config.Duration(5 * time.Minute)}, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate())
			assert.Equal(t, tt.want, tt.cfg.Runner(base).taskTimeout)
		})
	}
	assert.Equal(t, 45*time.Second, base.taskTimeout, "base runner is never modified")
}

func TestLoadScheduleConfig_Missing(t *testing.T) {
	cfg, err := LoadScheduleConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Batches)
}

func TestLoadScheduleConfig_InvalidCron(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[batch]]\nname = \"x\"\ncron = \"whenever\"\n"), 0644))

	_, err := LoadScheduleConfig(path)
	assert.Error(t, err)
}

func TestBatchScheduler_NextRun(t *testing.T) {
	cfg := BatchConfig{
		Name: "test",
		Cron: "0 3 * * *",
	}

	sched, err := NewScheduler([]BatchConfig{cfg}, nil)
	if err != nil {
		t.Fatal(err)
	}

	next := sched.NextRun("test")
	if next.IsZero() {
		t.Error("NextRun should return a time")
	}

	// Should be in the future
	if !next.After(time.Now()) {
		t.Error("NextRun should be in the future")
	}

	assert.True(t, sched.NextRun("unknown").IsZero())
}

func TestBatchScheduler_NextAny(t *testing.T) {
	sched, err := NewScheduler([]BatchConfig{
		{Name: "yearly", Cron: "0 0 1 1 *"},
		{Name: "minutely", Cron: "* * * * *"},
	}, nil)
	require.NoError(t, err)

	name, next := sched.NextAny()
	assert.Equal(t, "minutely", name)
	assert.False(t, next.IsZero())
}

func TestBatchScheduler_ShouldRun(t *testing.T) {
	cfg := BatchConfig{
		Name: "test",
		Cron: "* * * * *", // Every minute
	}

	sched, err := NewScheduler([]BatchConfig{cfg}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Mark as last run two minutes ago
	sched.lastRun["test"] = time.Now().Add(-2 * time.Minute)

	if !sched.ShouldRun("test") {
		t.Error("Should run after cron interval passed")
	}

	sched.MarkRunning("test")
	if sched.ShouldRun("test") {
		t.Error("Should not run while already running")
	}

	sched.MarkComplete("test")
	if sched.ShouldRun("test") {
		t.Error("Should not run right after completing")
	}
}

func TestBatchScheduler_StartRunsDueBatch(t *testing.T) {
	sched, err := NewScheduler([]BatchConfig{{Name: "test", Cron: "0 0 1 1 *"}}, nil)
	require.NoError(t, err)
	sched.tick = 10 * time.Millisecond
	sched.lastRun["test"] = time.Now().AddDate(-2, 0, 0)

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Start(ctx, func(ctx context.Context, c BatchConfig) error {
			runs.Add(1)
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	sched.Stop()
	sched.Stop() // idempotent
	<-done

	// the run completed and was recorded, so it is not due again
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, sched.ShouldRun("test"))
}
