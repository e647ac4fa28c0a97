package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"anpr-engine/internal/dedup"
	"anpr-engine/internal/geo"
	"anpr-engine/internal/models"
	"anpr-engine/internal/notify"
	"anpr-engine/internal/timeutil"
	"anpr-engine/pkg/config"
)

// SightingReader reads sighting events per camera.
type SightingReader interface {
	SightingsSince(ctx context.Context, cameraID int64, since time.Time) ([]models.Sighting, error)
}

// CheckpointReader reads the camera and checkpoint registries.
type CheckpointReader interface {
	ListCameras(ctx context.Context) ([]models.Camera, error)
	ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error)
}

// CheckpointService re-evaluates every checkpoint on a fixed periodic tick,
// independent of sighting arrival. Per (checkpoint, vehicle) the window
// state is recomputed from raw sightings each tick; only the notified fact
// persists, in the dedup store.
type CheckpointService struct {
	db       SightingReader
	ref      CheckpointReader
	hub      *notify.Hub
	notified *dedup.Store
	clock    timeutil.Clock

	tickInterval time.Duration

	mu      sync.RWMutex
	timeout time.Duration
}

// CheckpointServiceConfig holds configuration for the evaluator.
type CheckpointServiceConfig struct {
	TickIntervalSeconds int
	TimeoutSeconds      int
}

// NewCheckpointService creates the avoidance evaluator. notified gates the
// one-time alert per (vehicle, checkpoint).
func NewCheckpointService(db SightingReader, ref CheckpointReader, hub *notify.Hub, notified *dedup.Store, clock timeutil.Clock, cfg CheckpointServiceConfig) *CheckpointService {
	return &CheckpointService{
		db:           db,
		ref:          ref,
		hub:          hub,
		notified:     notified,
		clock:        clock,
		tickInterval: time.Duration(cfg.TickIntervalSeconds) * time.Second,
		timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Timeout returns the current checkpoint timeout.
func (cs *CheckpointService) Timeout() time.Duration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.timeout
}

// SetTimeout updates the checkpoint timeout. Only the enumerated operator
// values are accepted.
func (cs *CheckpointService) SetTimeout(seconds int) error {
	if !config.ValidCheckpointTimeout(seconds) {
		return fmt.Errorf("invalid checkpoint timeout %d: must be one of %v", seconds, config.AllowedCheckpointTimeouts)
	}
	cs.mu.Lock()
	cs.timeout = time.Duration(seconds) * time.Second
	cs.mu.Unlock()
	log.Printf("CheckpointService: Timeout set to %ds", seconds)
	return nil
}

// ClearCheckpoint ends the suppression window for one checkpoint placement,
// so vehicles may alert again if the checkpoint is re-placed.
func (cs *CheckpointService) ClearCheckpoint(checkpointKey string) {
	if removed := cs.notified.ClearPrefix(dedup.AvoidancePrefix(checkpointKey)); removed > 0 {
		log.Printf("CheckpointService: Cleared %d notified keys for checkpoint %s", removed, checkpointKey)
	}
}

// ClearAllCheckpoints drops every checkpoint suppression window. Used when
// the checkpoint registry mutates outside this engine's own endpoints.
func (cs *CheckpointService) ClearAllCheckpoints() {
	cs.notified.ClearPrefix("checkpoint:")
}

// Start runs the evaluation loop until the context is cancelled.
func (cs *CheckpointService) Start(ctx context.Context) {
	log.Printf("CheckpointService: Starting, tick every %v, timeout %v", cs.tickInterval, cs.Timeout())

	ticker := time.NewTicker(cs.tickInterval)
	defer ticker.Stop()

	cs.EvaluateAll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("CheckpointService: Shutting down...")
			return
		case <-ticker.C:
			cs.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation tick over every checkpoint. The clock is
// read once so every vehicle in the tick is judged against the same instant.
func (cs *CheckpointService) EvaluateAll(ctx context.Context) {
	now := cs.clock.Now()

	cameras, err := cs.ref.ListCameras(ctx)
	if err != nil {
		log.Printf("CheckpointService: Cameras unavailable, skipping tick: %v", err)
		return
	}
	checkpoints, err := cs.ref.ListCheckpoints(ctx)
	if err != nil {
		log.Printf("CheckpointService: Checkpoints unavailable, skipping tick: %v", err)
		return
	}

	timeout := cs.Timeout()
	for _, cp := range checkpoints {
		if ctx.Err() != nil {
			return
		}
		cs.evaluateCheckpoint(ctx, cp, cameras, now, timeout)
	}
}

// vehicleWindow holds the first sighting per bracket camera for one vehicle,
// recomputed fresh each tick.
type vehicleWindow struct {
	plate string
	passA *models.Sighting
	passB *models.Sighting
}

// evaluateCheckpoint evaluates one checkpoint. A read failure here aborts
// this checkpoint only; other checkpoints still evaluate this tick.
func (cs *CheckpointService) evaluateCheckpoint(ctx context.Context, cp models.Checkpoint, cameras []models.Camera, now time.Time, timeout time.Duration) {
	pair, ok := geo.ResolveBracket(cp.Location, cameras)
	if !ok {
		// Fewer than two usable cameras: nothing to bracket with.
		return
	}

	sightingsA, err := cs.db.SightingsSince(ctx, pair.CamA.ID, cp.ActivatedAt)
	if err != nil {
		log.Printf("CheckpointService: Error reading sightings at camera %d, skipping checkpoint %s: %v", pair.CamA.ID, pair.CheckpointKey, err)
		return
	}
	sightingsB, err := cs.db.SightingsSince(ctx, pair.CamB.ID, cp.ActivatedAt)
	if err != nil {
		log.Printf("CheckpointService: Error reading sightings at camera %d, skipping checkpoint %s: %v", pair.CamB.ID, pair.CheckpointKey, err)
		return
	}

	windows := make(map[int64]*vehicleWindow)
	group := func(sightings []models.Sighting, camID int64) {
		for i := range sightings {
			s := &sightings[i]
			if s.CameraID != pair.CamA.ID && s.CameraID != pair.CamB.ID {
				log.Printf("CheckpointService: Skipping sighting %s at unexpected camera %d", s.ID, s.CameraID)
				continue
			}
			w := windows[s.VehicleID]
			if w == nil {
				w = &vehicleWindow{plate: s.Plate}
				windows[s.VehicleID] = w
			}
			if camID == pair.CamA.ID && w.passA == nil {
				w.passA = s
			}
			if camID == pair.CamB.ID && w.passB == nil {
				w.passB = s
			}
		}
	}
	group(sightingsA, pair.CamA.ID)
	group(sightingsB, pair.CamB.ID)

	for vehicleID, w := range windows {
		cs.judgeVehicle(vehicleID, w, pair, now, timeout)
	}
}

// judgeVehicle classifies one vehicle's window state and alerts on a newly
// one-sided crossing past the timeout. Marking notified and publishing are
// one logical step; a lost publish after marking degrades to a missed alert.
func (cs *CheckpointService) judgeVehicle(vehicleID int64, w *vehicleWindow, pair geo.BracketPair, now time.Time, timeout time.Duration) {
	if w.passA == nil && w.passB == nil {
		return // NoCrossing
	}
	if w.passA != nil && w.passB != nil {
		return // BothSeen: normal transit
	}

	base := w.passA
	if base == nil {
		base = w.passB
	}
	if now.Sub(base.Timestamp) <= timeout {
		return // OneSided but not yet due
	}

	key := dedup.AvoidanceKey(pair.CheckpointKey, vehicleID)
	if !cs.notified.MarkIfAbsent(key, now) {
		return // already notified for this placement
	}

	message := fmt.Sprintf("vehicle %s passed camera %d but not the paired camera within %ds",
		w.plate, base.CameraID, int(timeout.Seconds()))

	alert := models.CheckpointAvoidanceAlert{
		VehicleID:     vehicleID,
		Plate:         w.plate,
		CheckpointKey: pair.CheckpointKey,
		CamA:          pair.CamA.ID,
		CamB:          pair.CamB.ID,
		SeenCam:       base.CameraID,
		Message:       message,
		Notification: models.Notification{
			ID:        uuid.NewString(),
			Kind:      models.NotificationCheckpoint,
			Message:   message,
			VehicleID: vehicleID,
			Timestamp: now,
		},
	}
	cs.hub.Publish(notify.TopicAlerts, models.Event{
		Kind:      models.EventCheckpointAvoidance,
		VehicleID: vehicleID,
		Payload:   alert,
	})
	log.Printf("CheckpointService: Avoidance alert for vehicle %d at checkpoint %s (seen camera %d)", vehicleID, pair.CheckpointKey, base.CameraID)
}
