package routing

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/observability"
)

var testWaypoints = []domain.Coordinate{
	{Lat: 17.5747, Lng: 120.3869},
	{Lat: 17.5920, Lng: 120.3890},
}

const osrmOKBody = `{
	"code": "Ok",
	"routes": [{
		"geometry": {
			"coordinates": [
				[120.3869, 17.5747],
				[120.3875, 17.5801],
				[120.3890, 17.5920]
			]
		}
	}]
}`

func TestClient_RoadPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		w.Write([]byte(osrmOKBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, slog.Default())
	path, err := c.RoadPath(context.Background(), testWaypoints)
	require.NoError(t, err)

	require.Len(t, path, 3)
	assert.Equal(t, domain.Coordinate{Lat: 17.5747, Lng: 120.3869}, path[0])
	assert.Equal(t, domain.Coordinate{Lat: 17.5920, Lng: 120.3890}, path[2])
	assert.Contains(t, gotPath, "/route/v1/foot/120.386900,17.574700;120.389000,17.592000")
}

func TestClient_RoadPath_SingleWaypointPassesThrough(t *testing.T) {
	c := NewClient("http://unused.invalid", time.Second, slog.Default())
	single := testWaypoints[:1]

	path, err := c.RoadPath(context.Background(), single)
	require.NoError(t, err)
	assert.Equal(t, single, path)
}

func TestClient_RoadPath_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"no route found", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
		}},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"code": "Ok"`))
		}},
		{"empty geometry", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"code": "Ok", "routes": [{"geometry": {"coordinates": []}}]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, slog.Default())
			_, err := c.RoadPath(context.Background(), testWaypoints)
			assert.Error(t, err)
		})
	}
}

func TestFallbackProvider_DegradesToWaypoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "routing down", http.StatusBadGateway)
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	provider := NewFallbackProvider(NewClient(srv.URL, time.Second, slog.Default()), slog.Default(), metrics)

	path, err := provider.RoadPath(context.Background(), testWaypoints)
	require.NoError(t, err, "fallback must never surface routing failures")
	assert.Equal(t, testWaypoints, path)
}

func TestFallbackProvider_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(osrmOKBody))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	provider := NewFallbackProvider(NewClient(srv.URL, time.Second, slog.Default()), slog.Default(), metrics)

	path, err := provider.RoadPath(context.Background(), testWaypoints)
	require.NoError(t, err)
	assert.Len(t, path, 3)
}
