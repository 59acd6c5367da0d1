package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogOfTen builds ten zones at increasing latitude offsets from the
// reference point, listed in shuffled order so ranking has work to do.
func catalogOfTen(from Coordinate) []SafeZone {
	order := []int{7, 2, 9, 4, 1, 8, 3, 10, 5, 6}
	zones := make([]SafeZone, 0, len(order))
	for _, n := range order {
		zones = append(zones, SafeZone{
			Name:     fmt.Sprintf("zone-%d", n),
			Location: Coordinate{Lat: from.Lat + float64(n)*0.01, Lng: from.Lng},
		})
	}
	return zones
}

func TestRankSafeZones_SortsAndTruncates(t *testing.T) {
	from := Coordinate{Lat: 17.5747, Lng: 120.3869}
	ranked := RankSafeZones(catalogOfTen(from), from, 5)

	require.Len(t, ranked, 5)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].DistanceKm, ranked[i-1].DistanceKm)
	}
	assert.Equal(t, "zone-1", ranked[0].Name)
	assert.Equal(t, "zone-5", ranked[4].Name)
}

func TestRankSafeZones_LimitZeroAndEmptyCatalog(t *testing.T) {
	from := Coordinate{Lat: 17.5747, Lng: 120.3869}

	assert.Empty(t, RankSafeZones(catalogOfTen(from), from, 0))
	assert.Empty(t, RankSafeZones(nil, from, 5))
	assert.Empty(t, RankSafeZones([]SafeZone{}, from, -1))
}

func TestRankSafeZones_LimitBeyondCatalog(t *testing.T) {
	from := Coordinate{}
	zones := []SafeZone{
		{Name: "a", Location: Coordinate{Lat: 0.02}},
		{Name: "b", Location: Coordinate{Lat: 0.01}},
	}
	ranked := RankSafeZones(zones, from, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Name)
}

func TestRankSafeZones_TiesKeepCatalogOrder(t *testing.T) {
	from := Coordinate{Lat: 17.5747, Lng: 120.3869}
	equidistant := Coordinate{Lat: from.Lat + 0.01, Lng: from.Lng}
	zones := []SafeZone{
		{Name: "gym", Location: equidistant},
		{Name: "school", Location: equidistant},
		{Name: "plaza", Location: from},
		{Name: "church", Location: equidistant},
	}

	ranked := RankSafeZones(zones, from, 4)
	require.Len(t, ranked, 4)
	assert.Equal(t, "plaza", ranked[0].Name)
	assert.Equal(t, "gym", ranked[1].Name)
	assert.Equal(t, "school", ranked[2].Name)
	assert.Equal(t, "church", ranked[3].Name)
}

func TestRankSafeZones_DoesNotMutateCatalog(t *testing.T) {
	from := Coordinate{Lat: 17.5747, Lng: 120.3869}
	zones := catalogOfTen(from)
	first := zones[0].Name

	RankSafeZones(zones, from, 3)
	assert.Equal(t, first, zones[0].Name)
}
