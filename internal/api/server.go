// Package api exposes the operator HTTP surface: manual pass injection,
// checkpoint lifecycle, timeout control, and reference-data refresh signals.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anpr-engine/internal/models"
	"anpr-engine/internal/notify"
	"anpr-engine/internal/timeutil"
)

// Ingestor processes one sighting synchronously.
type Ingestor interface {
	Process(ctx context.Context, sighting *models.Sighting) (models.SightingClassified, error)
}

// CheckpointStore persists operator checkpoint placements.
type CheckpointStore interface {
	ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error)
	CreateCheckpoint(ctx context.Context, lat, lon float64, activatedAt time.Time) (models.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, id int64) (models.Checkpoint, error)
}

// Evaluator is the avoidance evaluator's operator-facing control surface.
type Evaluator interface {
	Timeout() time.Duration
	SetTimeout(seconds int) error
	ClearCheckpoint(checkpointKey string)
	ClearAllCheckpoints()
}

// Server wires the HTTP routes to the engine services.
type Server struct {
	port        int
	ingest      Ingestor
	checkpoints CheckpointStore
	eval        Evaluator
	hub         *notify.Hub
	clock       timeutil.Clock
	engine      *gin.Engine
}

// New builds the server and registers all routes.
func New(port int, ingest Ingestor, checkpoints CheckpointStore, eval Evaluator, hub *notify.Hub, clock timeutil.Clock) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger(), corsMiddleware())

	s := &Server{
		port:        port,
		ingest:      ingest,
		checkpoints: checkpoints,
		eval:        eval,
		hub:         hub,
		clock:       clock,
		engine:      engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/vehicle-pass", s.handleVehiclePass)
	v1.GET("/checkpoints", s.handleListCheckpoints)
	v1.POST("/checkpoints", s.handleCreateCheckpoint)
	v1.DELETE("/checkpoints/:id", s.handleDeleteCheckpoint)
	v1.GET("/checkpoints/timeout", s.handleGetTimeout)
	v1.PUT("/checkpoints/timeout", s.handleSetTimeout)
	v1.POST("/reference-data/changed", s.handleReferenceDataChanged)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API: Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("API: Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
