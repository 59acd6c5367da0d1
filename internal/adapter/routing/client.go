// Package routing resolves route waypoints into road-following paths via an
// OSRM-compatible routing service, with caching and straight-line fallback.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/observability"
)

// RoadPathProvider expands waypoints into the actual path geometry.
type RoadPathProvider interface {
	RoadPath(ctx context.Context, waypoints []domain.Coordinate) ([]domain.Coordinate, error)
}

// Client implements RoadPathProvider against an OSRM HTTP endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	profile    string
	logger     *slog.Logger
}

// NewClient creates an OSRM routing client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "foot",
		logger:  logger,
	}
}

// RoadPath requests the road-following geometry through the given waypoints.
// Fewer than two waypoints are returned unchanged; there is nothing to route.
func (c *Client) RoadPath(ctx context.Context, waypoints []domain.Coordinate) ([]domain.Coordinate, error) {
	if len(waypoints) < 2 {
		return waypoints, nil
	}

	coords := make([]string, len(waypoints))
	for i, w := range waypoints {
		// OSRM uses lon,lat order.
		coords[i] = fmt.Sprintf("%.6f,%.6f", w.Lng, w.Lat)
	}

	u := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=geojson",
		c.baseURL, c.profile, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("routing service error: status %d: %s", resp.StatusCode, body)
	}

	var osrmResp response
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if osrmResp.Code != "Ok" || len(osrmResp.Routes) == 0 {
		return nil, fmt.Errorf("routing service returned no route: code %q", osrmResp.Code)
	}

	geometry := osrmResp.Routes[0].Geometry.Coordinates
	path := make([]domain.Coordinate, 0, len(geometry))
	for _, pair := range geometry {
		if len(pair) != 2 {
			continue
		}
		path = append(path, domain.Coordinate{Lat: pair[1], Lng: pair[0]})
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("routing service returned empty geometry")
	}
	return path, nil
}

// OSRM API response types.

type response struct {
	Code   string  `json:"code"`
	Routes []route `json:"routes"`
}

type route struct {
	Geometry geometry `json:"geometry"`
}

type geometry struct {
	Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
}

// FallbackProvider degrades routing failures to the waypoints themselves, so
// a routing outage costs path fidelity, never a user-facing error.
type FallbackProvider struct {
	inner   RoadPathProvider
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFallbackProvider wraps a provider with straight-line degradation.
func NewFallbackProvider(inner RoadPathProvider, logger *slog.Logger, metrics *observability.Metrics) *FallbackProvider {
	return &FallbackProvider{inner: inner, logger: logger, metrics: metrics}
}

func (f *FallbackProvider) RoadPath(ctx context.Context, waypoints []domain.Coordinate) ([]domain.Coordinate, error) {
	start := time.Now()
	path, err := f.inner.RoadPath(ctx, waypoints)
	f.metrics.RoadPathDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		f.logger.Warn("road path lookup failed, using straight-line waypoints",
			"error", err,
			"waypoints", len(waypoints),
		)
		f.metrics.RoadPathRequests.WithLabelValues("fallback").Inc()
		return waypoints, nil
	}

	f.metrics.RoadPathRequests.WithLabelValues("success").Inc()
	return path, nil
}
