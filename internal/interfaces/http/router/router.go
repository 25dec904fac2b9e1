package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/statusservice/internal/application/admission"
	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/internal/interfaces/http/handlers"
	"github.com/turtacn/statusservice/internal/interfaces/http/middleware"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Dependencies are the collaborators the router wires into routes.
type Dependencies struct {
	Pipeline *admission.Pipeline
	Clock    clock.Clock
	Tracing  *monitoring.TracingManager
	Metrics  *monitoring.Metrics
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
	Health   *handlers.HealthHandler
	Admin    *handlers.AdminHandler
	Status   *handlers.StatusHandler
	Data     *handlers.DataHandler
}

// Router is the HTTP router.
type Router struct {
	engine *gin.Engine
	config *config.Config
	logger logger.Logger
	deps   Dependencies
}

// ExemptPaths lists the paths that bypass admission for cfg.
func ExemptPaths(cfg *config.Config) []string {
	paths := append([]string(nil), admission.DefaultExemptPaths...)
	if cfg.Monitoring.MetricsEnabled {
		paths = append(paths, "/metrics")
	}
	if cfg.Monitoring.PprofEnabled {
		paths = append(paths, pprof.DefaultPrefix+"/*")
	}
	return paths
}

// NewRouter creates the router and registers every route.
func NewRouter(cfg *config.Config, log logger.Logger, deps Dependencies) *Router {
	r := &Router{
		engine: gin.New(),
		config: cfg,
		logger: log,
		deps:   deps,
	}
	r.setupRoutes()
	return r
}

// Engine returns the gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Server builds the http.Server for the configured address.
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:           r.config.Server.Addr(),
		Handler:        r.engine,
		ReadTimeout:    r.config.Server.ReadTimeout,
		WriteTimeout:   r.config.Server.WriteTimeout,
		IdleTimeout:    r.config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func (r *Router) setupRoutes() {
	r.engine.Use(
		middleware.RequestID(),
		middleware.Observability(r.deps.Tracing, r.deps.Metrics),
		middleware.AccessLog(r.logger),
		middleware.Admission(r.deps.Pipeline, r.deps.Clock, r.config.Server.MaxBodyBytes, r.logger),
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID},
			ExposeHeaders: []string{constants.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}),
	)

	r.engine.GET("/health", r.deps.Health.HealthCheck)

	admin := r.engine.Group("/", middleware.AdminAuth(r.config.Admin.JWTSecret))
	{
		admin.GET("/logs", r.deps.Admin.Logs)
		admin.GET("/blocklist", r.deps.Admin.Blocklist)
		admin.GET("/unblock", r.deps.Admin.Unblock)
		admin.GET("/limits", r.deps.Admin.Limits)
	}

	if r.config.Monitoring.MetricsEnabled {
		gatherer := r.deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if r.config.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	r.engine.Any("/status/:code", r.deps.Status.Respond)

	api := r.engine.Group("/api")
	{
		api.GET("/users", r.deps.Data.Users)
		api.GET("/products", r.deps.Data.Products)
		api.GET("/orders", r.deps.Data.Orders)
		api.GET("/random", r.deps.Data.Random)
		api.GET("/batch", r.deps.Data.Batch)
		api.POST("/echo", r.deps.Data.Echo)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "path": c.Request.URL.Path})
	})
}
