// Package domain models community hazard reports and the geospatial math
// used to surface them.
//
// # Data Source
//
// Hazard reports are submitted by citizens through the mobile app (photo +
// description + device GPS fix) and moderated by barangay/LGU staff. The
// managed data store publishes every insert and status update to the hazard
// change feed, which this engine consumes. The engine never writes hazard
// records; it only derives rankings, scores, and notification intents.
//
// # Status lifecycle
//
//	pending → verified → resolved
//
// A report starts at pending when submitted, may be marked verified by a
// moderator, and moves to resolved exactly once when the hazard is cleared.
// Status never reverts. Resolved reports are invisible to route scoring and
// only matter to notifications as the target state of a resolve transition.
//
// # Distance conventions
//
// All distances are great-circle kilometers over WGS-84 coordinates
// (haversine, mean Earth radius 6371 km). Coordinates are not range-checked
// inside the math functions; validation happens at the API and feed
// boundaries where values enter the system. Out-of-range input yields a
// meaningless but finite result.
//
// # Route safety scoring
//
// Routes arrive as road-following polylines from the routing service and may
// carry hundreds of points. Scoring samples every 5th point and sums a
// proximity penalty per (sampled point, active hazard) pair:
//
//	< 0.5 km  → 10
//	< 1 km    →  5
//	< 2 km    →  2
//	≥ 2 km    →  0
//
// The final score is 100 minus the accumulated penalty, floored at zero.
// 100 means no detected risk. The banding is a coarse cost-bounded signal,
// not a routing metric; see [ScoreRouteSafety].
package domain
