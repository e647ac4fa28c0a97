package geo

import (
	"math"

	"github.com/paulmach/orb"

	"anpr-engine/internal/models"
)

// BracketPair is the pair of cameras judged most likely to sit on opposite
// sides of a checkpoint. It is derived per evaluation pass and never cached,
// so camera topology changes take effect on the next pass.
type BracketPair struct {
	CheckpointKey string
	CamA          models.Camera
	CamB          models.Camera
}

// ResolveBracket selects the bracket pair for a checkpoint. CamA is the
// nearest camera. CamB maximizes an "opposite direction, nearby" score:
// direction vectors are built from checkpoint to camera in planar lat/lon
// space (adequate at city scale) and a candidate scores -cosTheta/(dist+1),
// rewarding near-180 degree opposition to CamA and penalizing distance.
//
// Ties on distance and on score break toward the lowest camera ID so the
// result does not depend on input order. With fewer than two cameras, or
// when every candidate vector is degenerate, no pair is resolvable.
func ResolveBracket(checkpoint orb.Point, cameras []models.Camera) (BracketPair, bool) {
	if len(cameras) < 2 {
		return BracketPair{}, false
	}

	camA := cameras[0]
	distA := Distance(checkpoint, camA.Location)
	for _, cam := range cameras[1:] {
		d := Distance(checkpoint, cam.Location)
		if d < distA || (d == distA && cam.ID < camA.ID) {
			camA, distA = cam, d
		}
	}

	vaLat := camA.Location.Lat() - checkpoint.Lat()
	vaLon := camA.Location.Lon() - checkpoint.Lon()
	magA := math.Hypot(vaLat, vaLon)

	var (
		camB      models.Camera
		bestScore = math.Inf(-1)
		found     bool
	)
	for _, cam := range cameras {
		if cam.ID == camA.ID {
			continue
		}
		vLat := cam.Location.Lat() - checkpoint.Lat()
		vLon := cam.Location.Lon() - checkpoint.Lon()
		mag := math.Hypot(vLat, vLon)
		if magA == 0 || mag == 0 {
			continue
		}

		cosTheta := (vaLat*vLat + vaLon*vLon) / (magA * mag)
		score := -cosTheta / (Distance(checkpoint, cam.Location) + 1)

		if score > bestScore || (score == bestScore && found && cam.ID < camB.ID) {
			camB = cam
			bestScore = score
			found = true
		}
	}
	if !found {
		return BracketPair{}, false
	}

	return BracketPair{
		CheckpointKey: models.CheckpointKey(checkpoint),
		CamA:          camA,
		CamB:          camB,
	}, true
}
