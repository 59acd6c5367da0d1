package domain

import "time"

// HazardStatus is the moderation state of a hazard report.
type HazardStatus string

const (
	HazardPending  HazardStatus = "pending"
	HazardVerified HazardStatus = "verified"
	HazardResolved HazardStatus = "resolved"
)

// Resolved reports whether the status is the terminal resolved state.
func (s HazardStatus) Resolved() bool {
	return s == HazardResolved
}

// HazardReport is a citizen-submitted hazard record. The engine treats it as
// read-only; all mutation happens in the upstream data store.
type HazardReport struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	HazardType  string       `json:"hazard_type"`
	Description string       `json:"description"`
	Location    Coordinate   `json:"location"`
	Status      HazardStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	FixedAt     *time.Time   `json:"fixed_at,omitempty"`
}

// SafeZone is a static catalog entry for a pre-designated safe location.
type SafeZone struct {
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
}

// RankedSafeZone is a SafeZone with its computed distance from a reference
// point. Derived on demand, never persisted.
type RankedSafeZone struct {
	SafeZone
	DistanceKm float64 `json:"distance_km"`
}

// RouteStatus is informational route state maintained by administrators.
// It is not derived by the engine.
type RouteStatus string

const (
	RouteClear  RouteStatus = "clear"
	RouteClosed RouteStatus = "closed"
)

// Route is a named evacuation path. Path holds the actual road-following
// geometry obtained from the routing service, not just the waypoints.
type Route struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status RouteStatus  `json:"status"`
	Path   []Coordinate `json:"path"`
}
