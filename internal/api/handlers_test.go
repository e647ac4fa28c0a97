package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anpr-engine/internal/models"
	"anpr-engine/internal/notify"
	"anpr-engine/internal/services"
	"anpr-engine/internal/timeutil"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type payload = map[string]interface{}

type fakeIngestor struct {
	processed []models.Sighting
	err       error
}

func (f *fakeIngestor) Process(ctx context.Context, sighting *models.Sighting) (models.SightingClassified, error) {
	if f.err != nil {
		return models.SightingClassified{}, f.err
	}
	sighting.ID = "s-1"
	sighting.Timestamp = t0
	f.processed = append(f.processed, *sighting)
	return models.SightingClassified{Sighting: *sighting}, nil
}

type fakeCheckpointStore struct {
	checkpoints []models.Checkpoint
	nextID      int64
}

func (f *fakeCheckpointStore) ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error) {
	return append([]models.Checkpoint(nil), f.checkpoints...), nil
}

func (f *fakeCheckpointStore) CreateCheckpoint(ctx context.Context, lat, lon float64, activatedAt time.Time) (models.Checkpoint, error) {
	f.nextID++
	cp := models.Checkpoint{
		ID:          f.nextID,
		Location:    orb.Point{lon, lat},
		ActivatedAt: activatedAt,
	}
	f.checkpoints = append(f.checkpoints, cp)
	return cp, nil
}

func (f *fakeCheckpointStore) DeleteCheckpoint(ctx context.Context, id int64) (models.Checkpoint, error) {
	for i, cp := range f.checkpoints {
		if cp.ID == id {
			f.checkpoints = append(f.checkpoints[:i], f.checkpoints[i+1:]...)
			return cp, nil
		}
	}
	return models.Checkpoint{}, errors.Wrap(pgx.ErrNoRows, "failed to delete checkpoint")
}

type fakeEvaluator struct {
	timeout    time.Duration
	cleared    []string
	clearedAll bool
}

func (f *fakeEvaluator) Timeout() time.Duration { return f.timeout }

func (f *fakeEvaluator) SetTimeout(seconds int) error {
	switch seconds {
	case 10, 30, 60:
		f.timeout = time.Duration(seconds) * time.Second
		return nil
	}
	return fmt.Errorf("invalid checkpoint timeout %d", seconds)
}

func (f *fakeEvaluator) ClearCheckpoint(checkpointKey string) {
	f.cleared = append(f.cleared, checkpointKey)
}

func (f *fakeEvaluator) ClearAllCheckpoints() { f.clearedAll = true }

func newTestServer(t *testing.T) (*Server, *fakeIngestor, *fakeCheckpointStore, *fakeEvaluator, *notify.Hub) {
	t.Helper()
	ingest := &fakeIngestor{}
	store := &fakeCheckpointStore{}
	eval := &fakeEvaluator{timeout: 30 * time.Second}
	hub := notify.NewHub(16)
	srv := New(0, ingest, store, eval, hub, timeutil.NewMockClock(t0))
	return srv, ingest, store, eval, hub
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVehiclePassReturnsClassification(t *testing.T) {
	srv, ingest, _, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vehicle-pass", payload{
		"vehicle_id":    7,
		"camera_id":     1,
		"license_plate": "XYZ-777",
		"vehicle_type":  "pickup",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var classified models.SightingClassified
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &classified))
	assert.Equal(t, "s-1", classified.Sighting.ID)
	assert.Equal(t, int64(7), classified.Sighting.VehicleID)

	require.Len(t, ingest.processed, 1)
	assert.Equal(t, "pickup", ingest.processed[0].Attributes.Type)
}

func TestVehiclePassUnknownCamera(t *testing.T) {
	srv, ingest, _, _, _ := newTestServer(t)
	ingest.err = fmt.Errorf("%w: 99", services.ErrUnknownCamera)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vehicle-pass", payload{
		"vehicle_id":    7,
		"camera_id":     99,
		"license_plate": "XYZ-777",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVehiclePassRejectsMissingFields(t *testing.T) {
	srv, ingest, _, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vehicle-pass", payload{
		"vehicle_id": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ingest.processed)
}

func TestCreateCheckpointStampsActivationAndBroadcasts(t *testing.T) {
	srv, _, store, _, hub := newTestServer(t)
	sub := hub.Subscribe(notify.TopicRefData)
	defer sub.Close()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/checkpoints", payload{
		"lat": 16.8600,
		"lon": 100.2100,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var cp models.Checkpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cp))
	assert.Equal(t, t0, cp.ActivatedAt)
	assert.Equal(t, "16.860000,100.210000", cp.Key())
	require.Len(t, store.checkpoints, 1)

	ev := <-sub.C
	assert.Equal(t, models.EventReferenceDataChanged, ev.Kind)
	changed, ok := ev.Payload.(models.ReferenceDataChanged)
	require.True(t, ok)
	assert.Equal(t, models.RefCheckpoints, changed.Kind)
}

func TestDeleteCheckpointClearsSuppression(t *testing.T) {
	srv, _, store, eval, _ := newTestServer(t)
	cp, err := store.CreateCheckpoint(context.Background(), 16.8600, 100.2100, t0)
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/checkpoints/%d", cp.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.checkpoints)
	assert.Equal(t, []string{"16.860000,100.210000"}, eval.cleared)
}

func TestDeleteCheckpointNotFound(t *testing.T) {
	srv, _, _, eval, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodDelete, "/api/v1/checkpoints/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, eval.cleared)
}

func TestListCheckpoints(t *testing.T) {
	srv, _, store, _, _ := newTestServer(t)
	_, err := store.CreateCheckpoint(context.Background(), 16.8600, 100.2100, t0)
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/checkpoints", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var checkpoints []models.Checkpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkpoints))
	assert.Len(t, checkpoints, 1)
}

func TestTimeoutRoundTrip(t *testing.T) {
	srv, _, _, eval, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/checkpoints/timeout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"timeout_seconds":30`)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/checkpoints/timeout", payload{"timeout_seconds": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10*time.Second, eval.timeout)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/checkpoints/timeout", payload{"timeout_seconds": 15})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 10*time.Second, eval.timeout)
}

func TestReferenceDataChangedCheckpointsResetsState(t *testing.T) {
	srv, _, _, eval, hub := newTestServer(t)
	sub := hub.Subscribe(notify.TopicAlerts)
	defer sub.Close()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/reference-data/changed", payload{"kind": "checkpoints"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, eval.clearedAll)

	// Broadcast reaches subscribers on every topic.
	ev := <-sub.C
	assert.Equal(t, models.EventReferenceDataChanged, ev.Kind)
}

func TestReferenceDataChangedBlacklistDoesNotResetState(t *testing.T) {
	srv, _, _, eval, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/reference-data/changed", payload{"kind": "blacklist"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, eval.clearedAll)
}

func TestReferenceDataChangedRejectsUnknownKind(t *testing.T) {
	srv, _, _, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/reference-data/changed", payload{"kind": "plates"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

