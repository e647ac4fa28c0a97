package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"anpr-engine/internal/models"
)

// RefStore reads reference data owned by the records service: cameras and
// blacklist entries are read-only here; checkpoints additionally get
// operator create/delete because their lifecycle lives in this engine.
type RefStore struct {
	pool *pgxpool.Pool
}

// NewRefStore creates a RefStore backed by a pgx pool.
func NewRefStore(ctx context.Context, databaseURL string) (*RefStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping Postgres")
	}
	return &RefStore{pool: pool}, nil
}

// Close releases the pool resources.
func (s *RefStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const listCamerasSQL = `
	SELECT id, camera_name, lat, lon
	FROM camera
	ORDER BY id
`

// ListCameras returns all cameras.
func (s *RefStore) ListCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := s.pool.Query(ctx, listCamerasSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query cameras")
	}
	defer rows.Close()

	cameras := make([]models.Camera, 0)
	for rows.Next() {
		var (
			camera   models.Camera
			lat, lon float64
		)
		if err := rows.Scan(&camera.ID, &camera.Name, &lat, &lon); err != nil {
			return nil, errors.Wrap(err, "failed to scan camera")
		}
		camera.Location = orb.Point{lon, lat}
		cameras = append(cameras, camera)
	}
	return cameras, rows.Err()
}

const listBlacklistSQL = `
	SELECT id, license_plate, vehicle_type, vehicle_color, vehicle_brand, reason
	FROM blacklist
	ORDER BY id
`

// ListBlacklist returns all blacklist entries in ascending ID order, the
// order the matcher consults them in.
func (s *RefStore) ListBlacklist(ctx context.Context) ([]models.BlacklistEntry, error) {
	rows, err := s.pool.Query(ctx, listBlacklistSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query blacklist")
	}
	defer rows.Close()

	entries := make([]models.BlacklistEntry, 0)
	for rows.Next() {
		var e models.BlacklistEntry
		if err := rows.Scan(
			&e.ID,
			&e.Plate,
			&e.Attributes.Type,
			&e.Attributes.Color,
			&e.Attributes.Brand,
			&e.Reason,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan blacklist entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const listCheckpointsSQL = `
	SELECT id, lat, lon, activated_at
	FROM checkpoint
	ORDER BY id
`

// ListCheckpoints returns all active checkpoints.
func (s *RefStore) ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error) {
	rows, err := s.pool.Query(ctx, listCheckpointsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query checkpoints")
	}
	defer rows.Close()

	checkpoints := make([]models.Checkpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

const createCheckpointSQL = `
	INSERT INTO checkpoint (lat, lon, activated_at)
	VALUES ($1, $2, $3)
	RETURNING id, lat, lon, activated_at
`

// CreateCheckpoint records an operator-placed checkpoint. ActivatedAt bounds
// which sightings are eligible for avoidance evaluation.
func (s *RefStore) CreateCheckpoint(ctx context.Context, lat, lon float64, activatedAt time.Time) (models.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, createCheckpointSQL, lat, lon, activatedAt)
	cp, err := scanCheckpoint(row)
	if err != nil {
		return models.Checkpoint{}, errors.Wrap(err, "failed to create checkpoint")
	}
	return cp, nil
}

const deleteCheckpointSQL = `
	DELETE FROM checkpoint
	WHERE id = $1
	RETURNING id, lat, lon, activated_at
`

// DeleteCheckpoint removes a checkpoint and returns the deleted row so the
// caller can clear its notified state.
func (s *RefStore) DeleteCheckpoint(ctx context.Context, id int64) (models.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, deleteCheckpointSQL, id)
	cp, err := scanCheckpoint(row)
	if err != nil {
		return models.Checkpoint{}, errors.Wrap(err, "failed to delete checkpoint")
	}
	return cp, nil
}

// CameraExists reports whether a camera ID is known.
func (s *RefStore) CameraExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM camera WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check camera")
	}
	return exists, nil
}

func scanCheckpoint(row pgx.Row) (models.Checkpoint, error) {
	var (
		cp       models.Checkpoint
		lat, lon float64
	)
	if err := row.Scan(&cp.ID, &lat, &lon, &cp.ActivatedAt); err != nil {
		return models.Checkpoint{}, errors.Wrap(err, "failed to scan checkpoint")
	}
	cp.Location = orb.Point{lon, lat}
	return cp, nil
}
