package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[batch]]\nname = \"nightly\"\ncron = \"0 2 * * *\"\n"), 0644))

	changes := make(chan *ScheduleConfig, 4)
	w, err := NewScheduleWatcher(path, func(c *ScheduleConfig) { changes <- c }, nil)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// broken edit is skipped
	require.NoError(t, os.WriteFile(path, []byte("[[batch]]\nname = \"nightly\"\ncron = \"bogus\"\n"), 0644))
	time.Sleep(100 * time.Millisecond)

	updated := "[[batch]]\nname = \"nightly\"\ncron = \"0 3 * * *\"\n\n[[batch]]\nname = \"hourly\"\ncron = \"0 * * * *\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if len(cfg.Batches) != 2 {
				continue
			}
			assert.Equal(t, "0 3 * * *", cfg.Batches[0].Cron)
			assert.Equal(t, "hourly", cfg.Batches[1].Name)
			return
		case <-deadline:
			t.Fatal("schedule change not delivered")
		}
	}
}

func TestScheduleWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	w, err := NewScheduleWatcher(path, nil, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.False(t, w.relevant(fsnotifyEvent(filepath.Join(dir, "other.toml"))))
	assert.True(t, w.relevant(fsnotifyEvent(path)))
}

func TestScheduleWatcher_KeepsScheduleWhenFileGone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[batch]]\nname = \"nightly\"\ncron = \"0 2 * * *\"\n"), 0644))

	var calls int
	w, err := NewScheduleWatcher(path, func(*ScheduleConfig) { calls++ }, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	tests := []struct {
		name  string
		event fsnotify.Op
		gone  func(t *testing.T)
	}{
		{"renamed", fsnotify.Rename, func(t *testing.T) { require.NoError(t, os.Rename(path, path+".bak")) }},
		{"removed", fsnotify.Remove, func(t *testing.T) { require.NoError(t, os.Remove(path+".bak")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.gone(t)
			assert.True(t, w.relevant(fsnotify.Event{Name: path, Op: tt.event}))
			w.reload()
			assert.Zero(t, calls, "a missing file must not replace the schedule")
		})
	}

	require.NoError(t, os.WriteFile(path, []byte("[[batch]]\nname = \"nightly\"\ncron = \"0 4 * * *\"\n"), 0644))
	w.reload()
	assert.Equal(t, 1, calls)
}

func TestScheduler_Reload(t *testing.T) {
	s, err := NewScheduler([]BatchConfig{
		{Name: "nightly", Cron: "0 2 * * *"},
		{Name: "hourly", Cron: "0 * * * *"},
	}, nil)
	require.NoError(t, err)
	s.MarkComplete("nightly")
	s.MarkComplete("hourly")

	require.NoError(t, s.Reload([]BatchConfig{{Name: "nightly", Cron: "30 2 * * *"}}))

	assert.Equal(t, []string{"nightly"}, s.ListBatches())
	cfg, ok := s.GetConfig("nightly")
	require.True(t, ok)
	assert.Equal(t, "30 2 * * *", cfg.Cron)
	assert.Zero(t, cfg.TaskTimeout)

	s.mu.RLock()
	_, kept := s.lastRun["nightly"]
	_, dropped := s.lastRun["hourly"]
	s.mu.RUnlock()
	assert.True(t, kept)
	assert.False(t, dropped)

	assert.Error(t, s.Reload([]BatchConfig{{Name: "bad", Cron: "nope"}}))
	assert.Equal(t, []string{"nightly"}, s.ListBatches(), "failed reload keeps the old set")
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
