// Package server exposes the response engine over HTTP for out-of-process
// consumers (the dashboard's non-Go services). The engine itself performs
// no I/O; everything network-shaped lives here.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/pkg/engine"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// DefaultCompressionMode applies when a compress request names no
	// mode; "auto" selects by estimated token count.
	DefaultCompressionMode string
	// StreamSentenceThreshold is the default for new stream sessions.
	StreamSentenceThreshold int
}

// Server provides the HTTP endpoints for responsed.
type Server struct {
	echo    *echo.Echo
	engine  *engine.Engine
	logger  *zap.Logger
	config  *Config
	metrics *httpMetrics
	streams *streamRegistry
}

// NewServer creates a new HTTP server around an engine.
func NewServer(eng *engine.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{
			Host:                    "localhost",
			Port:                    9292,
			DefaultCompressionMode:  "auto",
			StreamSentenceThreshold: compression.DefaultSentenceThreshold,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := newHTTPMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			metrics.record(c, duration)

			return err
		}
	})

	s := &Server{
		echo:    e,
		engine:  eng,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		streams: newStreamRegistry(),
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/plan", s.handlePlan)
	v1.POST("/compress", s.handleCompress)
	v1.POST("/validate", s.handleValidate)

	v1.POST("/streams", s.handleStreamCreate)
	v1.POST("/streams/:id/chunks", s.handleStreamChunk)
	v1.POST("/streams/:id/flush", s.handleStreamFlush)
	v1.DELETE("/streams/:id", s.handleStreamDelete)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Echo returns the underlying echo instance, for route registration in
// main and for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
