package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/api"
	"github.com/inkwell/blogmind/internal/app"
	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
	"github.com/inkwell/blogmind/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Blogmind API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	components, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	checks := map[string]api.HealthChecker{"database": components.DB}
	if components.Cache != nil {
		checks["redis"] = components.Cache
	}

	apiRouter := api.NewRouter(api.Services{
		Blogs:     components.Blogs,
		Asker:     components.Gateway,
		Reindexer: components.Indexer,
		Tracker:   components.Tracker,
		Launcher:  components.Launcher,
	}, api.Config{
		ShowErrorDetail: !cfg.Server.Production(),
		AgentSecret:     cfg.Agent.SecretKey,
		ReindexBatch:    cfg.Indexer.ReindexBatch,
		Checks:          checks,
	})

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown: stop taking requests, then let queued indexing finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	components.Close(ctx)

	logger.Info("Server exited")
}
