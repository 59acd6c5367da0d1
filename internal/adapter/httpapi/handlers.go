package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/civisafe/hazardwatch/internal/adapter/routing"
	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/notify"
)

// CatalogStore reads the hazard, safe-zone, and evacuation-route catalogs.
type CatalogStore interface {
	ActiveHazards(ctx context.Context) ([]domain.HazardReport, error)
	SafeZones(ctx context.Context) ([]domain.SafeZone, error)
	Routes(ctx context.Context) ([]domain.Route, error)
}

// Handler serves the engine's synchronous API. Validation of coordinates
// happens here, at the boundary; the domain math assumes valid input.
type Handler struct {
	catalog  CatalogStore
	roads    routing.RoadPathProvider
	session  *notify.Notifier
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler wires the API handlers to their collaborators.
func NewHandler(catalog CatalogStore, roads routing.RoadPathProvider, session *notify.Notifier, logger *slog.Logger) *Handler {
	v := validator.New()
	// validator's built-in latitude/longitude tags only accept strings, so
	// register numeric range checks under the same names.
	_ = v.RegisterValidation("lat", func(fl validator.FieldLevel) bool {
		lat := fl.Field().Float()
		return lat >= -90 && lat <= 90
	})
	_ = v.RegisterValidation("lng", func(fl validator.FieldLevel) bool {
		lng := fl.Field().Float()
		return lng >= -180 && lng <= 180
	})

	return &Handler{
		catalog:  catalog,
		roads:    roads,
		session:  session,
		logger:   logger,
		validate: v,
	}
}

type rankedZoneResponse struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distance_km"`
	Distance   string  `json:"distance"`
}

// NearestSafeZones ranks the safe-zone catalog by distance from the given
// point. GET /api/v1/safezones/nearest?lat=..&lng=..&limit=..
func (h *Handler) NearestSafeZones(w http.ResponseWriter, r *http.Request) {
	from, ok := coordinateFromQuery(w, r)
	if !ok {
		return
	}

	limit := domain.DefaultRankLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	zones, err := h.catalog.SafeZones(r.Context())
	if err != nil {
		h.logger.Error("safe zone catalog read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "safe zone catalog unavailable")
		return
	}

	ranked := domain.RankSafeZones(zones, from, limit)
	resp := make([]rankedZoneResponse, len(ranked))
	for i, z := range ranked {
		resp[i] = rankedZoneResponse{
			Name:       z.Name,
			Lat:        z.Location.Lat,
			Lng:        z.Location.Lng,
			DistanceKm: z.DistanceKm,
			Distance:   domain.FormatDistance(z.DistanceKm),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"safe_zones": resp})
}

type scoreRouteRequest struct {
	Waypoints []waypoint `json:"waypoints" validate:"required,min=2,dive"`
}

type waypoint struct {
	Lat float64 `json:"lat" validate:"lat"`
	Lng float64 `json:"lng" validate:"lng"`
}

// ScoreRoute expands the submitted waypoints into a road path and scores it
// against the active hazard set. POST /api/v1/routes/score
func (h *Handler) ScoreRoute(w http.ResponseWriter, r *http.Request) {
	var req scoreRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "waypoints must be at least two in-range coordinates")
		return
	}

	waypoints := make([]domain.Coordinate, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		waypoints[i] = domain.Coordinate{Lat: wp.Lat, Lng: wp.Lng}
	}

	// The provider degrades to the waypoints themselves on routing failure,
	// so only catalog errors can reach the client.
	path, err := h.roads.RoadPath(r.Context(), waypoints)
	if err != nil {
		h.logger.Error("road path lookup failed", "error", err)
		path = waypoints
	}

	hazards, err := h.catalog.ActiveHazards(r.Context())
	if err != nil {
		h.logger.Error("hazard catalog read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "hazard catalog unavailable")
		return
	}

	score := domain.ScoreRouteSafety(path, hazards)
	writeJSON(w, http.StatusOK, map[string]any{
		"score":       score,
		"path_points": len(path),
	})
}

type routeResponse struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Status domain.RouteStatus `json:"status"`
	Score  int                `json:"score"`
}

// ListRoutes returns the evacuation-route catalog with each route's current
// safety score. Status is administrative state passed through as-is; the
// score is recomputed from the active hazard set on every request.
// GET /api/v1/routes
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.catalog.Routes(r.Context())
	if err != nil {
		h.logger.Error("route catalog read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "route catalog unavailable")
		return
	}

	hazards, err := h.catalog.ActiveHazards(r.Context())
	if err != nil {
		h.logger.Error("hazard catalog read failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "hazard catalog unavailable")
		return
	}

	resp := make([]routeResponse, len(routes))
	for i, rt := range routes {
		resp[i] = routeResponse{
			ID:     rt.ID,
			Name:   rt.Name,
			Status: rt.Status,
			Score:  domain.ScoreRouteSafety(rt.Path, hazards),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": resp})
}

type updateLocationRequest struct {
	Lat float64 `json:"lat" validate:"lat"`
	Lng float64 `json:"lng" validate:"lng"`
}

// UpdateLocation feeds a location-provider fix into the notifier session.
// PUT /api/v1/session/location
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "lat/lng out of range")
		return
	}

	h.session.SetLocation(domain.Coordinate{Lat: req.Lat, Lng: req.Lng})
	w.WriteHeader(http.StatusNoContent)
}

func coordinateFromQuery(w http.ResponseWriter, r *http.Request) (domain.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return domain.Coordinate{}, false
	}

	c := domain.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		writeError(w, http.StatusBadRequest, "lat/lng out of range")
		return domain.Coordinate{}, false
	}
	return c, true
}
