package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/config"
	"github.com/hochfrequenz/booking-export/internal/exporter"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
	"github.com/hochfrequenz/booking-export/internal/logging"
	"github.com/hochfrequenz/booking-export/internal/metrics"
	"github.com/hochfrequenz/booking-export/internal/notify"
	"github.com/hochfrequenz/booking-export/internal/sheets"
)

// app bundles the components every batch-running command needs
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *exportstore.Store
	runner   *batch.Runner
	metrics  *metrics.Metrics
	notifier notify.Notifier
	listener *notify.Listener
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if local, ok := config.FindLocalConfig(wd); ok {
				path = local
			}
		}
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// openStore loads config and opens the store, for commands that never export
func openStore() (*config.Config, *exportstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := exportstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return cfg, store, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := exportstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sink, err := sheets.New(ctx, cfg.Sheets)
	if err != nil {
		store.Close()
		return nil, err
	}

	exporters := exporter.NewSet(store, sink, cfg.Sheets, cfg.Export.BatchSize, logger)
	runner := batch.NewRunner(store, exporters,
		batch.WithTaskTimeout(cfg.Export.TaskTimeout.Std()),
		batch.WithLogger(logger),
	)

	notifier := notify.New(cfg.Notifications.SlackWebhook, logger)

	m := metrics.New()
	listener := notify.NewListener(notifier, cfg.Notifications.NotifyOnComplete, logger)
	runner.Subscribe(m.Observe)
	runner.Subscribe(listener.Handle)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		runner:   runner,
		metrics:  m,
		notifier: notifier,
		listener: listener,
	}, nil
}

// Close flushes pending notifications and releases the store
func (a *app) Close() {
	a.listener.Wait()
	a.store.Close()
	a.logger.Sync()
}
