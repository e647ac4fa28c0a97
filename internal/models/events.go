package models

// EventKind names an outbound engine event. The set is fixed; subscribers
// switch on it to decode Payload.
type EventKind string

const (
	EventSightingClassified   EventKind = "sighting_classified"
	EventBlacklistAlert       EventKind = "blacklist_alert"
	EventCheckpointAvoidance  EventKind = "checkpoint_avoidance_alert"
	EventReferenceDataChanged EventKind = "reference_data_changed"
)

// ReferenceDataKind identifies which reference dataset mutated.
type ReferenceDataKind string

const (
	RefCameras     ReferenceDataKind = "cameras"
	RefBlacklist   ReferenceDataKind = "blacklist"
	RefCheckpoints ReferenceDataKind = "checkpoints"
)

// Event is the envelope delivered to subscribers. VehicleID is zero for
// events with no vehicle affinity.
type Event struct {
	Kind      EventKind   `json:"kind"`
	VehicleID int64       `json:"vehicle_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// SightingClassified is published for every ingested sighting, immediately.
type SightingClassified struct {
	Sighting Sighting    `json:"sighting"`
	Match    MatchResult `json:"match"`
}

// BlacklistAlert is published at most once per sighting ID.
type BlacklistAlert struct {
	Sighting     Sighting       `json:"sighting"`
	Entry        BlacklistEntry `json:"blacklist_entry"`
	Message      string         `json:"message"`
	Notification Notification   `json:"notification"`
}

// CheckpointAvoidanceAlert is published at most once per (vehicle, checkpoint)
// until the checkpoint is cleared.
type CheckpointAvoidanceAlert struct {
	VehicleID     int64        `json:"vehicle_id"`
	Plate         string       `json:"license_plate"`
	CheckpointKey string       `json:"checkpoint_key"`
	CamA          int64        `json:"cam_a"`
	CamB          int64        `json:"cam_b"`
	SeenCam       int64        `json:"seen_cam"`
	Message       string       `json:"message"`
	Notification  Notification `json:"notification"`
}

// ReferenceDataChanged prompts subscribers to refresh the named dataset.
type ReferenceDataChanged struct {
	Kind ReferenceDataKind `json:"kind"`
}
