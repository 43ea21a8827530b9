package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/pkg/logging"
)

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config holds what the router needs besides its services
type Config struct {
	ShowErrorDetail bool
	AgentSecret     string
	ReindexBatch    int
	// Checks are probed by the health endpoints, keyed by dependency name
	Checks map[string]HealthChecker
}

// Services are the operations exposed over JSON-RPC
type Services struct {
	Blogs     BlogService
	Asker     Asker
	Reindexer Reindexer
	Tracker   StatusTracker
	Launcher  GenerationLauncher
}

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	services Services
	cfg      Config
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(services Services, cfg Config) *Router {
	router := &Router{
		handler:  NewJSONRPCHandler(cfg.ShowErrorDetail),
		services: services,
		cfg:      cfg,
		logger:   logging.WithComponent("api-router"),
	}

	// Register all API methods
	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// JSON-RPC endpoint
	engine.POST("/", PrincipalMiddleware(), r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	blogAPI := NewBlogAPI(r.services.Blogs, r.services.Asker, r.services.Reindexer, r.cfg.AgentSecret, r.cfg.ReindexBatch)

	r.handler.RegisterMethod("blog_api.list_posts", blogAPI.ListPosts)
	r.handler.RegisterMethod("blog_api.get_post", blogAPI.GetPost)
	r.handler.RegisterMethod("blog_api.list_comments", blogAPI.ListComments)
	r.handler.RegisterMethod("blog_api.create_post", blogAPI.CreatePost)
	r.handler.RegisterMethod("blog_api.create_agent_post", blogAPI.CreateAgentPost)
	r.handler.RegisterMethod("blog_api.delete_post", blogAPI.DeletePost)
	r.handler.RegisterMethod("blog_api.react", blogAPI.React)
	r.handler.RegisterMethod("blog_api.add_comment", blogAPI.AddComment)
	r.handler.RegisterMethod("blog_api.ask", blogAPI.Ask)
	r.handler.RegisterMethod("blog_api.stats", blogAPI.Stats)
	r.handler.RegisterMethod("blog_api.user_activity", blogAPI.UserActivity)
	r.handler.RegisterMethod("blog_api.reindex", blogAPI.Reindex)

	agentAPI := NewAgentAPI(r.services.Tracker, r.services.Launcher, r.cfg.AgentSecret)

	r.handler.RegisterMethod("agent_api.get_status", agentAPI.GetStatus)
	r.handler.RegisterMethod("agent_api.push_status", agentAPI.PushStatus)
	r.handler.RegisterMethod("agent_api.trigger", agentAPI.Trigger)

	r.logger.Debug("JSON-RPC methods registered", zap.Int("count", len(r.handler.methods)))
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(r.cfg.Checks))
	for name, checker := range r.cfg.Checks {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "OK"
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "blogmind-api",
		"checks":  checks,
	})
}
