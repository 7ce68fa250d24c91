// Package server exposes the document, analysis, search and chat services
// over HTTP with gin. Chat answers stream as server-sent events.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

const shutdownTimeout = 10 * time.Second

// Services groups the ports the HTTP API drives. Blobs serves signed
// download links and may be nil.
type Services struct {
	Documents driving.DocumentService
	Analysis  driving.AnalysisService
	Search    driving.SearchService
	Chat      driving.ChatService
	Entities  driving.EntityService
	Blobs     driven.BlobStore
}

// Server holds the state for the REST API server.
type Server struct {
	svc    Services
	router *gin.Engine
}

// New creates a Server with every route registered.
func New(svc Services) *Server {
	if !logger.IsVerbose() && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if logger.IsVerbose() {
		r.Use(gin.Logger())
	}

	s := &Server{svc: svc, router: r}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	owners := s.router.Group("/owners/:ownerId")
	owners.POST("/documents", s.handleUpload)
	owners.GET("/documents", s.handleListDocuments)
	owners.POST("/process", s.handleProcessOwner)
	owners.POST("/search", s.handleSearch)
	owners.GET("/entity", s.handleGetEntity)
	owners.PUT("/entity", s.handlePutEntity)

	docs := s.router.Group("/documents/:id")
	docs.GET("", s.handleGetDocument)
	docs.DELETE("", s.handleDeleteDocument)
	docs.POST("/process", s.handleProcessDocument)
	docs.GET("/url", s.handleSignedURL)
	docs.POST("/analyze", s.handleAnalyze)
	docs.GET("/analysis", s.handleAnalysisStatus)

	s.router.POST("/chat", s.handleChat)
	s.router.GET("/blobs/*key", s.handleBlob)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
