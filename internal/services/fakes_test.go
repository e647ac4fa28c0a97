package services

import (
	"context"
	"sync"
	"time"

	"anpr-engine/internal/models"
)

// fakeRefStore implements BlacklistReader and CheckpointReader in memory.
type fakeRefStore struct {
	mu          sync.Mutex
	cameras     []models.Camera
	checkpoints []models.Checkpoint
	blacklist   []models.BlacklistEntry

	camerasErr     error
	checkpointsErr error
	blacklistErr   error
}

func (f *fakeRefStore) ListCameras(ctx context.Context) ([]models.Camera, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.camerasErr != nil {
		return nil, f.camerasErr
	}
	return append([]models.Camera(nil), f.cameras...), nil
}

func (f *fakeRefStore) ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkpointsErr != nil {
		return nil, f.checkpointsErr
	}
	return append([]models.Checkpoint(nil), f.checkpoints...), nil
}

func (f *fakeRefStore) ListBlacklist(ctx context.Context) ([]models.BlacklistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blacklistErr != nil {
		return nil, f.blacklistErr
	}
	return append([]models.BlacklistEntry(nil), f.blacklist...), nil
}

func (f *fakeRefStore) CameraExists(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.camerasErr != nil {
		return false, f.camerasErr
	}
	for _, cam := range f.cameras {
		if cam.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// fakeSightingStore implements SightingWriter and SightingReader in memory.
type fakeSightingStore struct {
	mu        sync.Mutex
	sightings []models.Sighting
	saveErr   error
	readErr   map[int64]error // per camera
}

func (f *fakeSightingStore) SaveSighting(ctx context.Context, s *models.Sighting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sightings = append(f.sightings, *s)
	return nil
}

func (f *fakeSightingStore) SightingsSince(ctx context.Context, cameraID int64, since time.Time) ([]models.Sighting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[cameraID]; err != nil {
		return nil, err
	}
	var out []models.Sighting
	for _, s := range f.sightings {
		if s.CameraID == cameraID && !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSightingStore) saved() []models.Sighting {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Sighting(nil), f.sightings...)
}

func drain(c <-chan models.Event) []models.Event {
	var events []models.Event
	for {
		select {
		case ev := <-c:
			events = append(events, ev)
		default:
			return events
		}
	}
}
