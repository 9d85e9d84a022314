package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"missioncore/internal/blob"
	"missioncore/internal/config"
	"missioncore/internal/core"
	"missioncore/internal/logging"
)

// app holds the wired runtime collaborators.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	store    core.PersistentStore
	service  *core.Service
	registry *prometheus.Registry
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, log)
}

func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app, error) {
	store, err := core.OpenPersistentStore(ctx, cfg.StorageOptions(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	a := &app{cfg: cfg, log: log, store: store}

	opts := []core.ServiceOption{
		core.WithLogger(core.NewLogrusLogger(log)),
		core.WithAuditRecorder(core.NewLogrusAuditRecorder(log)),
		core.WithTracer(core.NewLogrusTracer(log)),
	}
	if cfg.HTTP.Metrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	if !cfg.Blob.Disabled {
		blobs, err := blob.Open(ctx, cfg.BlobOptions())
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open %s blob store: %w", cfg.Blob.Driver, err)
		}
		opts = append(opts, core.WithArchiver(core.NewBlobArchiver(blobs)))
	}
	a.service = core.NewService(store, opts...)
	log.WithFields(logrus.Fields{
		"storage": cfg.Storage.Driver,
		"blob":    blobDriverLabel(cfg),
	}).Info("missioncore initialized")
	return a, nil
}

func blobDriverLabel(cfg config.Config) string {
	if cfg.Blob.Disabled {
		return "disabled"
	}
	return cfg.Blob.Driver
}

func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
