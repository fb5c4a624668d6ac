package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"idstat/adapters/badger"
	"idstat/adapters/excel"
	"idstat/adapters/memory"
	"idstat/adapters/postgres"
	"idstat/adapters/rng"
	"idstat/app"
	"idstat/internal"
	"idstat/internal/config"
	"idstat/internal/errors"
	"idstat/internal/metrics"
	"idstat/ports"
)

// ObservationSource is where samples come from: a spreadsheet or the
// observations view.
type ObservationSource interface {
	ports.SampleProvider
	ports.MetricCatalog
}

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	Source  ObservationSource          // nil when neither input.file nor database.url is set
	Samples *postgres.SampleRepository // nil unless the source is Postgres
	Store   ports.RunStore
	Metrics *metrics.Collector

	// Analysis and Study need a Source and are nil without one.
	Analysis *app.AnalysisService
	Study    *app.StudyService

	closers []func() error
}

// New builds every dependency cfg asks for. The caller must Shutdown the
// container even when New fails part way.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	c := &Container{Config: cfg, Logger: logger, Metrics: metrics.NewCollector()}

	if err := c.initDatabase(ctx); err != nil {
		return c, err
	}
	if err := c.initSource(); err != nil {
		return c, err
	}
	if err := c.initStore(); err != nil {
		return c, err
	}

	if c.Source == nil {
		return c, nil
	}
	analysis, err := app.NewAnalysisService(c.Source, c.Store, rng.NewSeededAdapter(), cfg.Settings(), logger.Zap(), c.Metrics)
	if err != nil {
		return c, err
	}
	c.Analysis = analysis
	c.Study = app.NewStudyService(analysis, cfg.WorkerCount(), logger.Zap())

	logger.Debug("container initialized: storage=%s workers=%d", cfg.Storage.Backend, cfg.WorkerCount())
	return c, nil
}

// initDatabase opens Postgres when a URL is configured.
func (c *Container) initDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return nil
	}
	db, err := sqlx.Open("postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to open database", err)
	}
	c.closers = append(c.closers, db.Close)
	if n := c.Config.Database.MaxOpenConns; n > 0 {
		db.SetMaxOpenConns(n)
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database connection test failed", err)
	}
	c.DB = db
	return nil
}

// initSource prefers an input file over the database.
func (c *Container) initSource() error {
	if file := c.Config.Input.File; file != "" {
		cfg := excel.DefaultConfig(file)
		cfg.Sheet = c.Config.Input.Sheet
		c.Source = excel.NewWorkbookSampleProvider(cfg, c.Logger.Zap())
		c.Logger.Info("reading observations from %s", file)
		return nil
	}
	if c.DB == nil {
		return nil
	}
	repo, err := postgres.NewSampleRepository(c.DB, c.Config.Database.SampleTable, c.Config.Database.CacheSize)
	if err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "invalid database.sample_table")
	}
	c.Samples = repo
	c.Source = repo
	return nil
}

// RequireSource fails when no observation source is configured.
func (c *Container) RequireSource() error {
	if c.Source == nil {
		return errors.ConfigInvalid("no observation source: set input.file or database.url")
	}
	return nil
}

func (c *Container) initStore() error {
	switch c.Config.Storage.Backend {
	case "postgres":
		if c.DB == nil {
			return errors.ConfigInvalid("database.url is required for the postgres backend")
		}
		c.Store = postgres.NewRunRepository(c.DB)
	case "badger":
		store, err := badger.Open(badger.Config{
			Path:   c.Config.Storage.BadgerDir,
			Logger: c.Logger.Zap().Named("badger"),
		})
		if err != nil {
			return errors.StorageError("failed to open badger store", err)
		}
		c.closers = append(c.closers, store.Close)
		c.Store = store
	default:
		c.Store = memory.NewRunStore()
	}
	return nil
}

// Shutdown writes the metrics textfile when configured and releases every
// resource in reverse order of acquisition.
func (c *Container) Shutdown(ctx context.Context) error {
	var first error
	if path := c.Config.Metrics.TextfilePath; path != "" {
		if err := c.Metrics.WriteTextfile(path); err != nil {
			first = err
		} else {
			c.Logger.Zap().Info("metrics written", zap.String("path", path))
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	_ = c.Logger.Sync()
	return first
}
