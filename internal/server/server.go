// Package server exposes a remote.Store over HTTP. The routes mirror the
// collaborator operations one to one so that remote/httpclient can reach
// any store served by this package.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/remote"
)

// Route prefixes shared with the HTTP client.
const (
	APIPrefix     = "/api/tenants"
	ExportsPrefix = "/exports"
)

// Server is the task API server.
type Server struct {
	store     remote.Store
	summary   Summarizer
	exportDir string
	token     string
	log       zerolog.Logger

	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithExportDir serves exported files from dir under /exports.
func WithExportDir(dir string) Option {
	return func(s *Server) { s.exportDir = dir }
}

// WithToken requires every API request to carry the bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server over store.
func New(store remote.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.router = router

	api := router.Group(APIPrefix + "/:tenant")
	if s.token != "" {
		api.Use(s.requireToken())
	}
	{
		api.GET("/tasks", s.handleSearch)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/by-type", s.handleByType)
		api.GET("/tasks/counts/status", s.handleCountByStatus)
		api.GET("/tasks/counts/categories", s.handleCountByCategories)
		api.GET("/tasks/counts/managers", s.handleCountByManagers)
		api.GET("/tasks/:id", s.handleFetchTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.GET("/customers/:customer/tasks", s.handleCustomerTasks)
		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.POST("/exports", s.handleExport)
		if s.summary != nil {
			api.GET("/summary", s.handleSummary)
		}
	}

	if s.exportDir != "" {
		router.GET(ExportsPrefix+"/:name", s.handleDownload)
	}

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in the background until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", listener.Addr().String()).Msg("starting api server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("api server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info().Msg("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := s.log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = s.log.Warn()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	want := "Bearer " + s.token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthorized",
			})
			return
		}
		c.Next()
	}
}
