package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"anpr-engine/internal/models"
	"anpr-engine/internal/services"
	"anpr-engine/pkg/config"
)

type vehiclePassRequest struct {
	VehicleID int64  `json:"vehicle_id" binding:"required"`
	CameraID  int64  `json:"camera_id" binding:"required"`
	Plate     string `json:"license_plate" binding:"required"`
	Province  string `json:"province"`
	Type      string `json:"vehicle_type"`
	Color     string `json:"vehicle_color"`
	Brand     string `json:"vehicle_brand"`
}

type checkpointRequest struct {
	Lat float64 `json:"lat" binding:"required"`
	Lon float64 `json:"lon" binding:"required"`
}

type timeoutRequest struct {
	TimeoutSeconds int `json:"timeout_seconds" binding:"required"`
}

type referenceDataChangedRequest struct {
	Kind models.ReferenceDataKind `json:"kind" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleVehiclePass injects a pass report over HTTP, same pipeline as the
// broker path. The classification comes back in the response.
func (s *Server) handleVehiclePass(c *gin.Context) {
	var req vehiclePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sighting := &models.Sighting{
		VehicleID: req.VehicleID,
		CameraID:  req.CameraID,
		Plate:     req.Plate,
		Province:  req.Province,
		Attributes: models.VehicleAttributes{
			Type:  req.Type,
			Color: req.Color,
			Brand: req.Brand,
		},
	}

	classified, err := s.ingest.Process(c.Request.Context(), sighting)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCamera) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, classified)
}

func (s *Server) handleListCheckpoints(c *gin.Context) {
	checkpoints, err := s.checkpoints.ListCheckpoints(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, checkpoints)
}

func (s *Server) handleCreateCheckpoint(c *gin.Context) {
	var req checkpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cp, err := s.checkpoints.CreateCheckpoint(c.Request.Context(), req.Lat, req.Lon, s.clock.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.broadcastReferenceDataChanged(models.RefCheckpoints)
	c.JSON(http.StatusCreated, cp)
}

// handleDeleteCheckpoint removes a checkpoint and ends its suppression
// window, so a re-placed checkpoint at the same spot alerts afresh.
func (s *Server) handleDeleteCheckpoint(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkpoint id"})
		return
	}

	cp, err := s.checkpoints.DeleteCheckpoint(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "checkpoint not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.eval.ClearCheckpoint(cp.Key())
	s.broadcastReferenceDataChanged(models.RefCheckpoints)
	c.JSON(http.StatusOK, cp)
}

func (s *Server) handleGetTimeout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeout_seconds": int(s.eval.Timeout().Seconds()),
		"allowed_values":  config.AllowedCheckpointTimeouts,
	})
}

func (s *Server) handleSetTimeout(c *gin.Context) {
	var req timeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eval.SetTimeout(req.TimeoutSeconds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeout_seconds": req.TimeoutSeconds})
}

// handleReferenceDataChanged is the hook for the records service, which owns
// cameras and the blacklist. A checkpoints signal also resets the notified
// state, since placements changed outside this engine's own endpoints.
func (s *Server) handleReferenceDataChanged(c *gin.Context) {
	var req referenceDataChangedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Kind {
	case models.RefCameras, models.RefBlacklist:
	case models.RefCheckpoints:
		s.eval.ClearAllCheckpoints()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reference data kind"})
		return
	}

	s.broadcastReferenceDataChanged(req.Kind)
	c.JSON(http.StatusAccepted, gin.H{"kind": req.Kind})
}

func (s *Server) broadcastReferenceDataChanged(kind models.ReferenceDataKind) {
	s.hub.Broadcast(models.Event{
		Kind:    models.EventReferenceDataChanged,
		Payload: models.ReferenceDataChanged{Kind: kind},
	})
}
