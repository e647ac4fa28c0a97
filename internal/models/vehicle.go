package models

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// VehicleAttributes are the physical attributes reported with a sighting and
// stored on blacklist entries. Similarity matching compares all three.
type VehicleAttributes struct {
	Type  string `json:"vehicle_type"`
	Color string `json:"vehicle_color"`
	Brand string `json:"vehicle_brand"`
}

// Sighting represents one vehicle observed at one camera. Sightings are
// immutable once recorded.
type Sighting struct {
	ID         string            `json:"id"`
	VehicleID  int64             `json:"vehicle_id"`
	CameraID   int64             `json:"camera_id"`
	Plate      string            `json:"license_plate"`
	Province   string            `json:"province"`
	Attributes VehicleAttributes `json:"attributes"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Camera is read-only reference data. Location is (lon, lat) per orb convention.
type Camera struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Location orb.Point `json:"location"`
}

// BlacklistEntry is read-only reference data, consulted per sighting.
type BlacklistEntry struct {
	ID         int64             `json:"id"`
	Plate      string            `json:"license_plate"`
	Attributes VehicleAttributes `json:"attributes"`
	Reason     string            `json:"reason"`
}

// Checkpoint is an operator-placed geographic point expected to lie between
// two cameras. Sightings before ActivatedAt are ignored by avoidance
// evaluation, so pre-existing traffic never produces alerts.
type Checkpoint struct {
	ID          int64     `json:"id"`
	Location    orb.Point `json:"location"`
	ActivatedAt time.Time `json:"activated_at"`
}

// Key identifies a checkpoint placement by its coordinate. Two checkpoints at
// the same coordinate share notified state.
func (c Checkpoint) Key() string {
	return CheckpointKey(c.Location)
}

// CheckpointKey formats a coordinate as a "lat,lon" key.
func CheckpointKey(p orb.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat(), p.Lon())
}

// MatchConfidence distinguishes an exact plate hit from an
// attribute-similarity hit. The tiers are kept distinct end to end so
// consumers never mistake a similarity match for a confirmed plate.
type MatchConfidence string

const (
	MatchExact      MatchConfidence = "exact"
	MatchSimilarity MatchConfidence = "similarity"
)

// MatchResult is the outcome of classifying one sighting against the
// blacklist. Entry is nil when Blacklisted is false.
type MatchResult struct {
	Blacklisted bool            `json:"is_blacklisted"`
	Confidence  MatchConfidence `json:"confidence,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Entry       *BlacklistEntry `json:"entry,omitempty"`
}

// NotificationKind tags a published notification.
type NotificationKind string

const (
	NotificationBlacklist  NotificationKind = "blacklist"
	NotificationCheckpoint NotificationKind = "checkpoint"
)

// Notification is the operator-facing record published for an alert. The
// engine keeps no history of these beyond the dedup horizon; persistence and
// display belong to downstream consumers.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	VehicleID int64            `json:"vehicle_id"`
	Timestamp time.Time        `json:"timestamp"`
}
