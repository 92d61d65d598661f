package container

import (
	"context"
	"fmt"
	"time"

	"surveylens/adapters/memory"
	"surveylens/adapters/postgres"
	"surveylens/adapters/storage"
	"surveylens/app"
	"surveylens/domain/survey"
	"surveylens/internal"
	"surveylens/internal/api"
	"surveylens/internal/config"
	"surveylens/internal/metrics"
	"surveylens/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB      *sqlx.DB
	Metrics *metrics.Metrics

	// Engine configuration
	Vocabulary *survey.Vocabulary
	Location   *time.Location

	// Repositories (data access layer)
	UploadRepo ports.UploadRepository
	BlobStore  ports.BlobStore

	// Services
	AnalysisService *app.AnalysisService
	UploadService   *app.UploadService
}

// New creates a container with the engine configured. Storage is attached
// with InitWithDatabase or InitInMemory.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	c := &Container{
		Config:  cfg,
		Logger:  logger.With("Container"),
		Metrics: metrics.New(),
	}

	vocab := survey.DefaultVocabulary()
	if cfg.Engine.VocabularyFile != "" {
		loaded, err := survey.LoadVocabulary(cfg.Engine.VocabularyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		vocab = loaded
		c.Logger.Info("using vocabulary from %s", cfg.Engine.VocabularyFile)
	}
	c.Vocabulary = vocab

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Engine.Timezone, err)
	}
	c.Location = loc

	c.AnalysisService = app.NewAnalysisService(vocab, loc,
		app.WithMetrics(c.Metrics),
		app.WithLogger(logger),
	)
	return c, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.UploadRepo = postgres.NewUploadRepository(db)
	return c.initStorage(ctx)
}

// InitInMemory keeps uploads in process memory, for running without a
// database.
func (c *Container) InitInMemory(ctx context.Context) error {
	c.UploadRepo = memory.NewUploadRepository()
	c.Logger.Warn("no database configured, uploads are kept in memory")
	return c.initStorage(ctx)
}

// initStorage connects the object store when configured and builds the
// upload service.
func (c *Container) initStorage(ctx context.Context) error {
	if s := c.Config.Storage; s.Enabled() {
		store, err := storage.New(ctx, s.Endpoint, s.Region, s.Bucket, s.AccessKey, s.SecretKey, s.UseSSL)
		if err != nil {
			return fmt.Errorf("failed to connect object storage: %w", err)
		}
		c.BlobStore = store
		c.Logger.Info("object storage ready: %s/%s", s.Endpoint, s.Bucket)
	}

	c.UploadService = app.NewUploadService(c.AnalysisService, c.UploadRepo, c.BlobStore, c.Config.Server.MaxUploadBytes)

	c.Logger.Info("container initialized")
	return nil
}

// Server builds the HTTP API over the container's services.
func (c *Container) Server() (*api.Server, error) {
	if c.UploadService == nil {
		return nil, fmt.Errorf("storage not initialized")
	}
	return api.NewServer(c.AnalysisService, c.UploadService, api.Options{
		AllowedOrigins: c.Config.Server.AllowedOrigins,
		MaxUploadBytes: c.Config.Server.MaxUploadBytes,
		Metrics:        c.Metrics,
		Logger:         internal.NewLogger(internal.ParseLogLevel(c.Config.LogLevel)),
	}), nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
