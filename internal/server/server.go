// Package server exposes the assist pipeline and work-log state over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evalcoach/internal/assist"
	"evalcoach/internal/logging"
	"evalcoach/internal/storage"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr           string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Debug          bool
}

// Server routes assist and state requests to the underlying services.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	assist     *assist.Service
	store      *storage.Store
	logger     logging.Logger
	startTime  time.Time
}

// New builds the router. A nil registry falls back to the default gatherer
// for /metrics.
func New(cfg Config, svc *assist.Service, store *storage.Store, registry *prometheus.Registry, logger logging.Logger) *Server {
	logger = logging.OrNop(logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	engine.Use(cors.New(corsConfig))

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Server{
		engine:    engine,
		assist:    svc,
		store:     store,
		logger:    logger,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  timeout,
		WriteTimeout: timeout + 10*time.Second,
	}
	s.setupRoutes(registry)
	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.engine.GET("/api/health", s.handleHealth)

	var handler http.Handler
	if registry != nil {
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		handler = promhttp.Handler()
	}
	s.engine.GET("/metrics", gin.WrapH(handler))

	api := s.engine.Group("/api")
	{
		api.POST("/assistant/refine", s.handleRefine)
		api.POST("/work-log/organize", s.handleOrganize)
		api.POST("/work-log/candidates", s.handleCandidates)
		api.POST("/work-log/candidate-coach", s.handleCoach)
		api.GET("/work-log/state", s.handleGetWorkLogState)
		api.PUT("/work-log/state", s.handlePutWorkLogState)
		api.DELETE("/work-log/folders/:id", s.handleDeleteWorkLogFolder)
		api.DELETE("/work-log/sample-data", s.handleDeleteSampleData)
		api.GET("/state/:namespace", s.handleGetState)
		api.PUT("/state/:namespace", s.handlePutState)
		api.DELETE("/state/:namespace", s.handleDeleteState)
	}
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"configured": s.assist.Configured(),
	})
}
