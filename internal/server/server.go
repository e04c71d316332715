// Package server exposes the orchestrator over HTTP: session creation with
// SSE or NDJSON event streaming, plus catalog inspection endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mosaicdev/chorus/internal/catalog"
	"github.com/mosaicdev/chorus/internal/config"
	"github.com/mosaicdev/chorus/internal/orchestrator"
	"github.com/mosaicdev/chorus/internal/version"
	"github.com/mosaicdev/chorus/pkg/models"
)

// SessionRunner is one orchestration run plus its event stream. Satisfied by
// *orchestrator.Orchestrator; injectable for handler tests.
type SessionRunner interface {
	Events() <-chan orchestrator.StreamEvent
	CloseEvents()
	Run(ctx context.Context, req orchestrator.RunRequest) (*models.Session, error)
}

// RunnerFactory builds a fresh SessionRunner per request.
type RunnerFactory func() SessionRunner

// Server wires the HTTP layer to the catalog and the orchestrator.
type Server struct {
	cfg        *config.Config
	db         *catalog.DB
	newRunner  RunnerFactory
	engine     *gin.Engine
	httpServer *http.Server
}

// New creates a Server. The factory is called once per POST /api/sessions.
func New(cfg *config.Config, db *catalog.DB, newRunner RunnerFactory) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:       cfg,
		db:        db,
		newRunner: newRunner,
		engine:    engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/roles", s.handleListRoles)
	api.GET("/providers", s.handleListProviders)
}

// Handler returns the underlying HTTP handler (for tests).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe runs the server until the context is cancelled or the
// listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Get(),
	})
}

func (s *Server) handleListRoles(c *gin.Context) {
	roles, err := s.db.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (s *Server) handleListProviders(c *gin.Context) {
	providers, err := s.db.ListProviders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
