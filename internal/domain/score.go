package domain

// sampleStride controls route downsampling: only every 5th path point is
// evaluated against the hazard set. Road-following polylines can carry
// hundreds of points and a coarse safety signal does not need all of them.
const sampleStride = 5

// Proximity penalty bands, per (sampled point, active hazard) pair.
const (
	penaltyNear   = 10 // < 0.5 km
	penaltyClose  = 5  // 0.5–1 km
	penaltyNearby = 2  // 1–2 km
)

// ScoreRouteSafety computes a 0–100 safety score for a route polyline against
// the given hazard set. 100 means no detected risk. Resolved hazards never
// depress the score. The function is pure; callers recompute whenever the
// hazard set or the route geometry changes.
func ScoreRouteSafety(route []Coordinate, hazards []HazardReport) int {
	if len(route) == 0 || len(hazards) == 0 {
		return 100
	}

	penalty := 0
	for i := 0; i < len(route); i += sampleStride {
		for _, h := range hazards {
			if h.Status.Resolved() {
				continue
			}
			penalty += proximityPenalty(DistanceKm(route[i], h.Location))
		}
	}

	score := 100 - penalty
	if score < 0 {
		return 0
	}
	return score
}

func proximityPenalty(distanceKm float64) int {
	switch {
	case distanceKm < 0.5:
		return penaltyNear
	case distanceKm < 1:
		return penaltyClose
	case distanceKm < 2:
		return penaltyNearby
	default:
		return 0
	}
}
