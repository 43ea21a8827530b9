package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/app"
	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

// drainTimeout bounds how long queued jobs may run after a command is done
const drainTimeout = 5 * time.Minute

func main() {
	if err := rootApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func rootApp() *cli.App {
	return &cli.App{
		Name:  "blogmind-indexer",
		Usage: "Re-submit posts that are not ready for questions yet",
		Description: `Posts are indexed by the agent worker right after they are published.
		When the worker was down or failed, a post stays not ready until it is
		submitted again. This tool does that, once or on a schedule.

		Configuration is shared with the API server, e.g.:

		BLOG_DATABASE_URL, BLOG_AGENT_SERVICE_URL, BLOG_REINDEX_BATCH
		`,
		Commands: []*cli.Command{
			sweepCmd(),
			watchCmd(),
			reindexCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func sweepCmd() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Submit every post that is not ready, oldest first, and wait for the results",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of posts to submit (defaults to and capped at reindex_batch)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(func(ctx context.Context, cfg *config.Config, a *app.App, logger *zap.Logger) error {
				// A sweep never submits more than the queue is sized for.
				limit := c.Int("limit")
				if limit <= 0 || limit > cfg.Indexer.ReindexBatch {
					limit = cfg.Indexer.ReindexBatch
				}
				submitted, err := a.Indexer.Sweep(ctx, limit)
				if err != nil {
					return err
				}
				logger.Info("Sweep submitted posts", zap.Int("submitted", submitted), zap.Int("limit", limit))
				return nil
			})
		},
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Sweep on a cron schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schedule",
				Aliases: []string{"s"},
				Usage:   "Cron schedule (defaults to reindex_schedule, then @hourly)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(func(ctx context.Context, cfg *config.Config, a *app.App, logger *zap.Logger) error {
				schedule := c.String("schedule")
				if schedule == "" {
					schedule = cfg.Indexer.ReindexSchedule
				}
				if schedule == "" {
					schedule = "@hourly"
				}

				scheduler := cron.New()
				_, err := scheduler.AddFunc(schedule, func() {
					submitted, err := a.Indexer.Sweep(ctx, cfg.Indexer.ReindexBatch)
					if err != nil {
						logger.Error("Scheduled sweep failed", zap.Error(err))
						return
					}
					logger.Info("Scheduled sweep submitted posts", zap.Int("submitted", submitted))
				})
				if err != nil {
					return fmt.Errorf("invalid schedule %q: %w", schedule, err)
				}

				scheduler.Start()
				logger.Info("Watching for posts that are not ready", zap.String("schedule", schedule))

				<-ctx.Done()
				<-scheduler.Stop().Done()
				logger.Info("Scheduler stopped")
				return nil
			})
		},
	}
}

func reindexCmd() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Submit a single post again, whatever its readiness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Post id",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			return run(func(ctx context.Context, _ *config.Config, a *app.App, logger *zap.Logger) error {
				id := c.String("id")
				if err := a.Indexer.Reindex(ctx, id); err != nil {
					return err
				}
				logger.Info("Post submitted for indexing", zap.String("post_id", id))
				return nil
			})
		},
	}
}

// run sets up configuration, logging and the components, runs fn until it
// returns or the process is interrupted, then drains queued jobs.
func run(fn func(ctx context.Context, cfg *config.Config, a *app.App, logger *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.GetLogger().Sync()

	logger := logging.WithComponent("indexer-cli")

	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer telemetryShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	runErr := fn(ctx, cfg, a, logger)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	a.Close(drainCtx)

	return runErr
}
