// Package server exposes the plan pipeline as a JSON API: plan
// generation, standalone plan validation, health and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/monitoring"
	"github.com/planwright/planwright/internal/pipeline"
	"github.com/planwright/planwright/internal/server/middleware"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	http     *http.Server
	log      *logging.Logger
}

// Config contains server configuration.
type Config struct {
	Host string
	Port string
}

// New creates the server and registers all routes.
func New(cfg Config, pl *pipeline.Pipeline, metrics *monitoring.Metrics, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}

	s := &Server{
		router:   router,
		pipeline: pl,
		log:      log.Component("server"),
		http: &http.Server{
			Addr:              cfg.Host + ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/plans", s.generatePlan)
	v1.POST("/plans/validate", s.validatePlan)

	return s
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	s.log.Info("starting http server", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.http.Shutdown(ctx)
}
