// Package app wires the blog core to its stores and the agent worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/agent"
	"github.com/inkwell/blogmind/internal/blog"
	"github.com/inkwell/blogmind/internal/cache"
	"github.com/inkwell/blogmind/internal/db"
	"github.com/inkwell/blogmind/internal/indexer"
	"github.com/inkwell/blogmind/internal/listing"
	"github.com/inkwell/blogmind/internal/qa"
	"github.com/inkwell/blogmind/internal/reaction"
	"github.com/inkwell/blogmind/internal/worker"
	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
)

// connectTimeout bounds how long startup waits for the database
const connectTimeout = 2 * time.Minute

// App holds the running components
type App struct {
	DB       *db.DB
	Cache    *cache.Cache
	Worker   *worker.Client
	Posts    *db.PostRepository
	Comments *db.CommentRepository
	Indexer  *indexer.Orchestrator
	Tracker  *agent.Tracker
	Launcher *agent.Launcher
	Gateway  *qa.Gateway
	Blogs    *blog.Service

	logger *zap.Logger
}

// New connects to the stores and builds every component. The indexing
// pool is started; Close stops it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.WithComponent("app")

	database, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Migrate {
		if err := db.Migrate(cfg.Database.URL); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// The listing cache is advisory, so an unreachable Redis only disables it.
	redisCache, err := cache.New(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
		redisCache = nil
	}

	repo := db.NewRepository(database.DB)
	posts := db.NewPostRepository(repo)
	comments := db.NewCommentRepository(repo)

	workerClient := worker.NewClient(&cfg.Worker)

	orchestrator := indexer.New(posts, workerClient, &cfg.Indexer, cfg.Worker.IndexTimeout)
	orchestrator.Start()

	a := &App{
		DB:       database,
		Cache:    redisCache,
		Worker:   workerClient,
		Posts:    posts,
		Comments: comments,
		Indexer:  orchestrator,
		Tracker:  agent.NewTracker(),
		Launcher: agent.NewLauncher(workerClient),
		Gateway:  qa.NewGateway(posts, workerClient, cfg.Worker.QueryTimeout),
		logger:   logger,
	}
	a.Blogs = blog.NewService(
		posts,
		comments,
		listing.New(redisCache, &cfg.Cache),
		orchestrator,
		reaction.NewLedger(posts),
	)

	return a, nil
}

// connect opens the database, retrying with exponential backoff while it
// comes up.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*db.DB, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 15 * time.Second
	policy.MaxElapsedTime = connectTimeout

	var database *db.DB
	operation := func() error {
		var err error
		database, err = db.New(ctx, &cfg.Database, cfg.Logging.Level)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// Close drains the indexing pool and releases every connection.
func (a *App) Close(ctx context.Context) {
	if err := a.Indexer.Close(ctx); err != nil {
		a.logger.Warn("Indexing pool did not drain", zap.Error(err))
	}
	a.Tracker.Close()

	if err := a.Cache.Close(); err != nil {
		a.logger.Warn("Failed to close Redis", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
}
