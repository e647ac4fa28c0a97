package database

import (
	"context"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"

	"anpr-engine/internal/models"
)

// SightingStore is the append-only store for camera sighting events, backed
// by ClickHouse.
type SightingStore struct {
	conn driver.Conn
}

// NewSightingStore connects to ClickHouse and bootstraps the sighting schema.
func NewSightingStore(addr, database, username, password string) (*SightingStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ClickHouse")
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to ping ClickHouse")
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	store := &SightingStore{conn: conn}
	if err := store.initSchema(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return store, nil
}

func (s *SightingStore) initSchema() error {
	ctx := context.Background()
	for _, tableSQL := range AllTables() {
		if err := s.conn.Exec(ctx, tableSQL); err != nil {
			return errors.Wrap(err, "failed to create table")
		}
	}
	log.Println("Sighting schema initialized")
	return nil
}

// SaveSighting appends one sighting.
func (s *SightingStore) SaveSighting(ctx context.Context, sighting *models.Sighting) error {
	query := `
		INSERT INTO vehicle_sightings
			(id, vehicle_id, camera_id, license_plate, province, vehicle_type, vehicle_color, vehicle_brand, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		sighting.ID,
		sighting.VehicleID,
		sighting.CameraID,
		sighting.Plate,
		sighting.Province,
		sighting.Attributes.Type,
		sighting.Attributes.Color,
		sighting.Attributes.Brand,
		sighting.Timestamp,
	)
	return errors.Wrap(err, "failed to insert sighting")
}

// SightingsSince returns all sightings at one camera at or after since, in
// timestamp order.
func (s *SightingStore) SightingsSince(ctx context.Context, cameraID int64, since time.Time) ([]models.Sighting, error) {
	query := `
		SELECT id, vehicle_id, camera_id, license_plate, province, vehicle_type, vehicle_color, vehicle_brand, timestamp
		FROM vehicle_sightings
		WHERE camera_id = ? AND timestamp >= ?
		ORDER BY timestamp
	`
	rows, err := s.conn.Query(ctx, query, cameraID, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sightings")
	}
	defer rows.Close()

	var sightings []models.Sighting
	for rows.Next() {
		var sighting models.Sighting
		if err := rows.Scan(
			&sighting.ID,
			&sighting.VehicleID,
			&sighting.CameraID,
			&sighting.Plate,
			&sighting.Province,
			&sighting.Attributes.Type,
			&sighting.Attributes.Color,
			&sighting.Attributes.Brand,
			&sighting.Timestamp,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan sighting")
		}
		sightings = append(sightings, sighting)
	}
	return sightings, rows.Err()
}

// Close closes the underlying connection.
func (s *SightingStore) Close() error {
	return s.conn.Close()
}
