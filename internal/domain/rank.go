package domain

import "sort"

// DefaultRankLimit is the number of safe zones returned when the caller does
// not ask for a specific count.
const DefaultRankLimit = 5

// RankSafeZones orders zones by ascending distance from the reference point
// and truncates the result to limit entries. Zones at equal distance keep
// their catalog order. An empty catalog or limit <= 0 yields an empty slice.
func RankSafeZones(zones []SafeZone, from Coordinate, limit int) []RankedSafeZone {
	if len(zones) == 0 || limit <= 0 {
		return []RankedSafeZone{}
	}

	ranked := make([]RankedSafeZone, len(zones))
	for i, z := range zones {
		ranked[i] = RankedSafeZone{
			SafeZone:   z,
			DistanceKm: DistanceKm(from, z.Location),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}
