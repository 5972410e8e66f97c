package ports

import (
	"context"
	"vrp-route-service/internal/domain"
)

// Pairwise travel metrics over a location list. Index i in both matrices
// refers to the i-th location passed to DistanceMatrix.
type Matrix struct {
	Distances [][]float64 `json:"distances"` // meters
	Durations [][]float64 `json:"durations"` // seconds
}

func (m Matrix) Size() int { return len(m.Distances) }

// Distance returns 0 for out-of-range indices.
func (m Matrix) Distance(i, j int) float64 { return cell(m.Distances, i, j) }

// Duration returns 0 for out-of-range indices, which callers treat as unknown.
func (m Matrix) Duration(i, j int) float64 { return cell(m.Durations, i, j) }

func cell(rows [][]float64, i, j int) float64 {
	if i < 0 || i >= len(rows) || j < 0 || j >= len(rows[i]) {
		return 0
	}
	return rows[i][j]
}

type DirectionsStep struct {
	Instruction     string  `json:"instruction"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Turn-by-turn path through an ordered waypoint list.
type Directions struct {
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	Geometry        string           `json:"geometry"` // encoded polyline
	Steps           []DirectionsStep `json:"steps"`
}

// Contract for the external distance/route oracle.
type DistanceOracle interface {
	// Return distances and durations for every ordered pair of locations.
	DistanceMatrix(ctx context.Context, locations []domain.Coordinates) (Matrix, error)
	// Return a path from origin to destination visiting waypoints in order.
	Directions(ctx context.Context, origin, destination domain.Coordinates, waypoints []domain.Coordinates) (Directions, error)
}

// Resolve a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
