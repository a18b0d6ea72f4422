package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/devdag/internal/build"
	"github.com/vk/devdag/internal/compare"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/device"
	"github.com/vk/devdag/internal/metrics"
	"github.com/vk/devdag/internal/notify"
	"github.com/vk/devdag/internal/topologystore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	cfg        *Config
	model      *config.Model
	comparator *compare.Comparator
	builders   *build.Registry
	metrics    *metrics.Metrics

	// Set through options in tests; otherwise created on first use.
	source    device.Source
	store     topologystore.Store
	publisher *notify.Publisher

	notifyFailed bool
	closers      []func(context.Context) error
}

// Option customises an App.
type Option func(*App)

// WithSource makes generate read devices from src instead of sysfs.
func WithSource(src device.Source) Option {
	return func(a *App) { a.source = src }
}

// WithStore makes the snapshot commands use s instead of connecting to
// Neo4j.
func WithStore(s topologystore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithPublisher makes compare and diff announce their results through p
// instead of dialing the notification server.
func WithPublisher(p *notify.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// NewApp is the constructor for the main application. Command output goes
// to outW and log records to logW. A configuration that cannot be loaded is
// a fatal startup error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model := config.Default()
	if cfg.ConfigPath != "" {
		loaded, err := loader.Load(ctx, cfg.ConfigPath)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		model = loaded
		logger.Debug("Configuration loaded and translated into unified model.", "path", cfg.ConfigPath)
	}

	comparator, err := compare.NewComparator(compare.SpecFromConfig(ctx, model.Persistent))
	if err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	a := &App{
		outW:       outW,
		logger:     logger,
		cfg:        cfg,
		model:      model,
		comparator: comparator,
		builders:   build.DefaultRegistry(),
		metrics:    metrics.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the domain configuration in use. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Metrics returns the application's collectors. This is primarily for testing.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// close releases the connections opened while running.
func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Failed to close connection.", "error", err)
		}
	}
	a.closers = nil
}
