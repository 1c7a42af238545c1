package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"listen-history/utils"
)

const shutdownTimeout = 10 * time.Second

// ServerOptions configures NewServer.
type ServerOptions struct {
	Addr    string
	Debug   bool
	Metrics http.Handler
	// Observer receives every finished request; may be nil.
	Observer RequestObserver
}

// Server is the HTTP server for the summary API.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *utils.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(h *Handler, opts ServerOptions, logger *utils.Logger) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger, opts.Observer))

	SetupRoutes(router, h, opts.Metrics)
	return router
}

// SetupRoutes registers the API routes on router. metrics may be nil.
func SetupRoutes(router *gin.Engine, h *Handler, metrics http.Handler) {
	router.GET("/healthz", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v := router.Group("/api")
	v.GET("/summary", h.GetSummary)
	v.GET("/metrics-strip", h.GetMetricsStrip)
	v.GET("/status", h.GetStatus)
	v.POST("/refresh", h.PostRefresh)
}

// NewServer creates a server listening on opts.Addr.
func NewServer(h *Handler, opts ServerOptions, logger *utils.Logger) *Server {
	router := NewRouter(h, opts, logger)
	return &Server{
		router: router,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// Refreshes fetch every sheet, so writes get a generous window.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  2 * time.Minute,
		},
		logger: logger,
	}
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api: serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("[api] Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	s.logger.Info("[api] Server stopped")
	return nil
}
