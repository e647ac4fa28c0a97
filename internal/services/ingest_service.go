package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"anpr-engine/internal/blacklist"
	"anpr-engine/internal/dedup"
	"anpr-engine/internal/models"
	"anpr-engine/internal/notify"
	"anpr-engine/internal/timeutil"
)

// SightingWriter appends sighting events.
type SightingWriter interface {
	SaveSighting(ctx context.Context, sighting *models.Sighting) error
}

// BlacklistReader reads the watch registry and camera registry.
type BlacklistReader interface {
	ListBlacklist(ctx context.Context) ([]models.BlacklistEntry, error)
	CameraExists(ctx context.Context, id int64) (bool, error)
}

// ErrUnknownCamera is returned when a pass references a camera the
// reference store does not know.
var ErrUnknownCamera = fmt.Errorf("unknown camera")

// IngestService classifies each incoming sighting against the blacklist and
// fans the result out, synchronously in the ingestion path so blacklist
// alerts are near-immediate.
type IngestService struct {
	db     SightingWriter
	ref    BlacklistReader
	hub    *notify.Hub
	passes *dedup.Store
	clock  timeutil.Clock

	// Input channel (written by the MQTT subscriber, read by Start)
	SightingChan chan *models.Sighting
}

// IngestServiceConfig holds configuration for the ingest service.
type IngestServiceConfig struct {
	ChannelSize int
}

// NewIngestService creates the ingest pipeline. passes gates the one-time
// blacklist alert per sighting ID.
func NewIngestService(db SightingWriter, ref BlacklistReader, hub *notify.Hub, passes *dedup.Store, clock timeutil.Clock, config IngestServiceConfig) *IngestService {
	if config.ChannelSize < 1 {
		config.ChannelSize = 100
	}
	return &IngestService{
		db:           db,
		ref:          ref,
		hub:          hub,
		passes:       passes,
		clock:        clock,
		SightingChan: make(chan *models.Sighting, config.ChannelSize),
	}
}

// Start consumes the sighting channel until the context is cancelled.
func (s *IngestService) Start(ctx context.Context) {
	log.Println("IngestService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("IngestService: Shutting down...")
			return
		case sighting, ok := <-s.SightingChan:
			if !ok {
				log.Println("IngestService: Channel closed, shutting down...")
				return
			}
			if _, err := s.Process(ctx, sighting); err != nil {
				log.Printf("IngestService: Error processing sighting: %v", err)
			}
		}
	}
}

// Process handles one sighting: persist, classify, publish. Classification
// failure degrades to an unclassified publish rather than dropping the
// sighting; only an unknown camera rejects the pass outright.
func (s *IngestService) Process(ctx context.Context, sighting *models.Sighting) (models.SightingClassified, error) {
	if sighting.ID == "" {
		sighting.ID = uuid.NewString()
	}
	if sighting.Timestamp.IsZero() {
		sighting.Timestamp = s.clock.Now()
	}

	known, err := s.ref.CameraExists(ctx, sighting.CameraID)
	if err != nil {
		log.Printf("IngestService: Camera lookup unavailable, accepting pass from camera %d: %v", sighting.CameraID, err)
	} else if !known {
		return models.SightingClassified{}, fmt.Errorf("%w: %d", ErrUnknownCamera, sighting.CameraID)
	}

	if err := s.db.SaveSighting(ctx, sighting); err != nil {
		log.Printf("IngestService: Error persisting sighting %s: %v", sighting.ID, err)
	}

	entries, err := s.ref.ListBlacklist(ctx)
	if err != nil {
		log.Printf("IngestService: Blacklist unavailable, publishing sighting %s unclassified: %v", sighting.ID, err)
		entries = nil
	}
	match := blacklist.Classify(*sighting, entries)

	classified := models.SightingClassified{Sighting: *sighting, Match: match}
	event := models.Event{
		Kind:      models.EventSightingClassified,
		VehicleID: sighting.VehicleID,
		Payload:   classified,
	}
	s.hub.PublishVehicle(sighting.VehicleID, event)
	s.hub.Publish(notify.TopicSightings, event)

	if match.Blacklisted {
		s.publishBlacklistAlert(classified)
	}
	return classified, nil
}

// publishBlacklistAlert emits the one-time alert for a blacklisted sighting.
// The dedup gate makes repeat processing of the same sighting ID silent.
func (s *IngestService) publishBlacklistAlert(classified models.SightingClassified) {
	sighting := classified.Sighting
	if !s.passes.MarkIfAbsent(dedup.PassKey(sighting.ID), sighting.Timestamp) {
		return
	}

	var message string
	if classified.Match.Confidence == models.MatchExact {
		message = fmt.Sprintf("vehicle %s matched blacklist plate, reason: %s", sighting.Plate, classified.Match.Reason)
	} else {
		message = fmt.Sprintf("vehicle %s resembles a blacklisted vehicle (%s %s %s), reason: %s",
			sighting.Plate,
			sighting.Attributes.Color, sighting.Attributes.Brand, sighting.Attributes.Type,
			classified.Match.Reason)
	}

	alert := models.BlacklistAlert{
		Sighting: sighting,
		Entry:    *classified.Match.Entry,
		Message:  message,
		Notification: models.Notification{
			ID:        uuid.NewString(),
			Kind:      models.NotificationBlacklist,
			Message:   message,
			VehicleID: sighting.VehicleID,
			Timestamp: s.clock.Now(),
		},
	}
	s.hub.Publish(notify.TopicAlerts, models.Event{
		Kind:      models.EventBlacklistAlert,
		VehicleID: sighting.VehicleID,
		Payload:   alert,
	})
	log.Printf("IngestService: Blacklist alert (%s) for plate %s", classified.Match.Confidence, sighting.Plate)
}

// PruneLoop removes expired pass keys on an hourly cadence. Avoidance keys
// are never pruned on a timer; they clear with their checkpoint.
func (s *IngestService) PruneLoop(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.passes.Prune(s.clock.Now().Add(-retention)); removed > 0 {
				log.Printf("IngestService: Pruned %d expired notification keys", removed)
			}
		}
	}
}
