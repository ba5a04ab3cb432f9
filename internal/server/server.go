package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/internal/observability"
	"github.com/vzahanych/balloon-atlas/internal/server/handlers"
	"github.com/vzahanych/balloon-atlas/internal/server/middlewares"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.uber.org/zap"
)

// API is everything the HTTP surface needs from the pipeline.
type API interface {
	handlers.DataProvider
	handlers.CacheStatsProvider
}

type Server struct {
	engine  *gin.Engine
	server  *http.Server
	api     API
	metrics *observability.Metrics
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewServer(cfg config.ServerConfig, api API, metrics *observability.Metrics, logger *zap.Logger, tele *telemetry.Telemetry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger, true))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(middlewares.MetricsMiddleware(metrics))

	s := &Server{
		engine:  engine,
		api:     api,
		metrics: metrics,
		logger:  logger,
		tele:    tele,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	data := handlers.NewDataHandler(s.api, s.logger)

	api := s.engine.Group("/api")
	api.GET("/data", data.GetData)
	api.GET("/balloons", data.GetBalloons)
	api.POST("/ai/question", data.AskQuestion)
	api.POST("/cache/clear", data.ClearCache)

	// Health endpoints (Kubernetes friendly)
	health := handlers.NewHealthHandler(s.logger, s.api)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	if s.metrics != nil {
		s.engine.GET("/metrics", handlers.NewMetricsHandler(s.metrics.Handler()).ServeMetrics)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
