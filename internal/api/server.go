// Package api exposes the device registry, lifecycle operations and the
// exposure pipeline over HTTP, with a websocket feed for device events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/config"
	"github.com/openskies/alpaca-console/internal/controller"
	"github.com/openskies/alpaca-console/internal/events"
	"github.com/openskies/alpaca-console/internal/store"
	"github.com/openskies/alpaca-console/pkg/healthcheck"
)

// Server is the HTTP front of the console.
type Server struct {
	config     config.ServerConfig
	logger     *zap.Logger
	controller *controller.Controller
	store      *store.Store
	health     *healthcheck.Engine
	hub        *Hub
	detach     events.UnsubscribeFunc
}

// NewServer wires the HTTP layer over the controller. store may be nil when
// persistence is disabled.
func NewServer(cfg config.ServerConfig, ctrl *controller.Controller, st *store.Store, bus *events.Bus, health *healthcheck.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	hub := NewHub(logger)
	return &Server{
		config:     cfg,
		logger:     logger.With(zap.String("component", "api_server")),
		controller: ctrl,
		store:      st,
		health:     health,
		hub:        hub,
		detach:     hub.Attach(bus),
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()
	defer s.hub.Close()
	defer s.detach()

	httpServer := &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.setupRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("address", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during HTTP server shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// setupRouter builds the routing table.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/ws", func(c *gin.Context) {
		serveWs(s.hub, c.Writer, c.Request)
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/devices", s.handleListDevices)
		v1.POST("/devices", s.handleAddDevice)
		v1.GET("/devices/:id", s.handleGetDevice)
		v1.DELETE("/devices/:id", s.handleRemoveDevice)

		v1.POST("/devices/:id/connect", s.handleConnect)
		v1.POST("/devices/:id/disconnect", s.handleDisconnect)
		v1.POST("/devices/:id/methods/:method", s.handleCallMethod)
		v1.POST("/devices/:id/properties/refresh", s.handleRefreshProperties)

		v1.POST("/devices/:id/polling/start", s.handleStartPolling)
		v1.POST("/devices/:id/polling/stop", s.handleStopPolling)

		v1.GET("/devices/:id/image", s.handleDownloadImage)
		v1.GET("/devices/:id/image/render", s.handleRenderImage)
		v1.POST("/images/decode", s.handleDecodeImage)
	}

	return router
}

// loggingMiddleware logs each request with its latency and status.
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("duration", time.Since(start)),
		}

		switch {
		case statusCode >= 500:
			logger.Error("Request failed", fields...)
		case statusCode >= 400:
			logger.Warn("Request returned client error", fields...)
		default:
			logger.Debug("Request completed", fields...)
		}
	}
}
