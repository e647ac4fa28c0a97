package database

// SQL schema for the ClickHouse sighting store. Reference data (cameras,
// blacklist, checkpoints) lives in Postgres and its schema is owned by the
// records service; only the high-volume sighting stream is bootstrapped here.

const (
	// SightingsTableSQL creates the vehicle_sightings table. Ordered by
	// (camera_id, timestamp) because avoidance evaluation reads per-camera
	// time ranges.
	SightingsTableSQL = `
		CREATE TABLE IF NOT EXISTS vehicle_sightings (
			id String,
			vehicle_id Int64,
			camera_id Int64,
			license_plate String,
			province String,
			vehicle_type String,
			vehicle_color String,
			vehicle_brand String,
			timestamp DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (camera_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns every table definition to apply at startup.
func AllTables() []string {
	return []string{
		SightingsTableSQL,
	}
}
