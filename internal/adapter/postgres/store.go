// Package postgres reads the hazard and safe-zone catalogs from the managed
// data store. The engine never writes hazard records.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civisafe/hazardwatch/internal/domain"
)

// Store exposes read-only catalog queries backed by a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to Postgres and verifies the connection with a ping.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres")
	return &Store{pool: pool, logger: logger}, nil
}

// ActiveHazards returns all hazard reports that have not been resolved.
// Resolved hazards never participate in route scoring.
func (s *Store) ActiveHazards(ctx context.Context) ([]domain.HazardReport, error) {
	const query = `
SELECT id, name, hazard_type, description, lat, lng, status, created_at, fixed_at
FROM hazard_reports
WHERE status <> 'resolved'
ORDER BY created_at DESC
`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active hazards: %w", err)
	}
	defer rows.Close()

	hazards := make([]domain.HazardReport, 0, 32)
	for rows.Next() {
		var h domain.HazardReport
		if err := rows.Scan(
			&h.ID, &h.Name, &h.HazardType, &h.Description,
			&h.Location.Lat, &h.Location.Lng,
			&h.Status, &h.CreatedAt, &h.FixedAt,
		); err != nil {
			return nil, fmt.Errorf("scan hazard row: %w", err)
		}
		hazards = append(hazards, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hazard rows: %w", err)
	}

	return hazards, nil
}

// SafeZones returns the full safe-zone catalog in its configured order. The
// catalog order matters: ranking ties preserve it.
func (s *Store) SafeZones(ctx context.Context) ([]domain.SafeZone, error) {
	const query = `
SELECT name, lat, lng
FROM safe_zones
ORDER BY position
`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query safe zones: %w", err)
	}
	defer rows.Close()

	zones := make([]domain.SafeZone, 0, 16)
	for rows.Next() {
		var z domain.SafeZone
		if err := rows.Scan(&z.Name, &z.Location.Lat, &z.Location.Lng); err != nil {
			return nil, fmt.Errorf("scan safe zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate safe zone rows: %w", err)
	}

	return zones, nil
}

// Routes returns the evacuation-route catalog. Path geometry is stored as a
// JSONB coordinate array maintained by the route editor.
func (s *Store) Routes(ctx context.Context) ([]domain.Route, error) {
	const query = `
SELECT id, name, status, path
FROM evacuation_routes
ORDER BY name
`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0, 8)
	for rows.Next() {
		var r domain.Route
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &r.Path); err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route rows: %w", err)
	}

	return routes, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
