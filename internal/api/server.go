package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/database"
)

// Server exposes recorded runs over HTTP
type Server struct {
	router *gin.Engine
	repo   *database.Repository
	addr   string
	logger hclog.Logger
}

// NewServer creates a new API server
func NewServer(repo *database.Repository, addr string, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	config.AllowMethods = []string{"GET", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	server := &Server{
		router: router,
		repo:   repo,
		addr:   addr,
		logger: logger,
	}
	server.setupRoutes()
	return server
}

func requestLogger(logger hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")

	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.DELETE("/runs/:id", s.deleteRun)
	api.GET("/runs/:id/decisions", s.getDecisions)
	api.GET("/runs/:id/events", s.getEvents)
	api.GET("/runs/:id/learning", s.getLearningMetrics)
	api.GET("/runs/:id/checkpoint", s.getCheckpoint)
	api.GET("/runs/:id/summary", s.getRunSummary)

	api.GET("/health", s.healthCheck)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("analytics server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// fail maps repository errors to HTTP responses
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// requireRun writes 404 and returns false when the run does not exist
func (s *Server) requireRun(c *gin.Context) bool {
	if _, err := s.repo.GetRun(c.Param("id")); err != nil {
		s.fail(c, err)
		return false
	}
	return true
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.repo.ListRuns(c.Query("algorithm"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) deleteRun(c *gin.Context) {
	if err := s.repo.DeleteRun(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "run deleted"})
}

func (s *Server) getDecisions(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if !s.requireRun(c) {
		return
	}
	decisions, err := s.repo.GetDecisions(c.Param("id"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, decisions)
}

func (s *Server) getEvents(c *gin.Context) {
	if !s.requireRun(c) {
		return
	}
	events, err := s.repo.GetEvents(c.Param("id"), c.Query("type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) getLearningMetrics(c *gin.Context) {
	if !s.requireRun(c) {
		return
	}
	metrics, err := s.repo.GetLearningMetrics(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (s *Server) getCheckpoint(c *gin.Context) {
	run, err := s.repo.GetRun(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	cp, err := s.repo.GetLatestCheckpoint(run.ID, run.Algorithm)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checkpoint for run"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (s *Server) getRunSummary(c *gin.Context) {
	summary, err := s.repo.GetRunSummary(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
